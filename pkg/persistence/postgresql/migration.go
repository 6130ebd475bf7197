package postgresql

// migrations returns the versioned schema migrations for the process store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS processes (
				id UUID PRIMARY KEY,
				process_type VARCHAR(64) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE IF NOT EXISTS process_steps (
				id UUID PRIMARY KEY,
				process_id UUID NOT NULL REFERENCES processes(id),
				step_type VARCHAR(64) NOT NULL,
				step_status VARCHAR(16) NOT NULL,
				message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_process_steps_process_id ON process_steps(process_id);
			CREATE INDEX IF NOT EXISTS idx_process_steps_todo ON process_steps(process_id, step_type) WHERE step_status = 'TODO';
		`,
		2: `
			CREATE TABLE IF NOT EXISTS offer_subscriptions (
				id UUID PRIMARY KEY,
				offer_id VARCHAR(255) NOT NULL,
				offer_name VARCHAR(255) NOT NULL,
				company_id VARCHAR(255) NOT NULL,
				requester_id VARCHAR(255) NOT NULL,
				requester_email VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(16) NOT NULL,
				single_instance BOOLEAN NOT NULL DEFAULT FALSE,
				instance_url TEXT NOT NULL DEFAULT '',
				callback_url TEXT NOT NULL DEFAULT '',
				client_id VARCHAR(255),
				technical_user_id VARCHAR(255),
				process_id UUID REFERENCES processes(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_offer_subscriptions_process_id ON offer_subscriptions(process_id);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS company_applications (
				id UUID PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				company_name VARCHAR(255) NOT NULL,
				status VARCHAR(16) NOT NULL,
				external_user_id VARCHAR(255) NOT NULL DEFAULT '',
				osp_callback_url TEXT NOT NULL DEFAULT '',
				process_id UUID REFERENCES processes(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_company_applications_process_id ON company_applications(process_id);

			CREATE TABLE IF NOT EXISTS identity_providers (
				id UUID PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				company_name VARCHAR(255) NOT NULL,
				alias VARCHAR(255) NOT NULL,
				enabled BOOLEAN NOT NULL DEFAULT FALSE,
				redirect_url TEXT NOT NULL DEFAULT '',
				invite_email VARCHAR(255) NOT NULL DEFAULT '',
				service_account_id VARCHAR(255),
				org_mapper_id VARCHAR(255),
				realm_client_id VARCHAR(255),
				process_id UUID REFERENCES processes(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_identity_providers_process_id ON identity_providers(process_id);
		`,
	}
}
