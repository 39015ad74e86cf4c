package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflow_templates (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(255) NOT NULL DEFAULT 'general',
				trigger_type VARCHAR(32) NOT NULL,
				trigger_config JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				is_public BOOLEAN NOT NULL DEFAULT FALSE,
				usage_count BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_templates_category
				ON workflow_templates (category);
			CREATE INDEX IF NOT EXISTS idx_workflow_templates_usage
				ON workflow_templates (usage_count DESC, updated_at DESC);

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id UUID PRIMARY KEY,
				template_id UUID,
				workflow_name VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(32) NOT NULL,
				trigger_data JSONB,
				status VARCHAR(32) NOT NULL,
				actions JSONB NOT NULL DEFAULT '[]',
				error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_executions_status
				ON workflow_executions (status);
			CREATE INDEX IF NOT EXISTS idx_workflow_executions_template
				ON workflow_executions (template_id);
			CREATE INDEX IF NOT EXISTS idx_workflow_executions_created
				ON workflow_executions (created_at DESC);

			CREATE TABLE IF NOT EXISTS document_workflows (
				id UUID PRIMARY KEY,
				document_id VARCHAR(255) NOT NULL,
				workflow_name VARCHAR(255) NOT NULL,
				current_step INTEGER NOT NULL DEFAULT 1,
				total_steps INTEGER NOT NULL,
				steps JSONB,
				status VARCHAR(32) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_document_workflows_document
				ON document_workflows (document_id);
			CREATE INDEX IF NOT EXISTS idx_document_workflows_status
				ON document_workflows (status);
		`,
	}
}
