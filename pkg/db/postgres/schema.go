package postgres

import "github.com/akashx/akashx/pkg/db"

// tableDDL holds the CREATE statements in dependency order. Rows reference
// each other by id without foreign keys so a single indexer's tables can be
// dropped and rebuilt independently.
var tableDDL = []struct {
	name string
	ddl  string
}{
	{db.TableDays, `
		CREATE TABLE IF NOT EXISTS days (
			id UUID PRIMARY KEY,
			date DATE NOT NULL UNIQUE,
			first_block_height BIGINT NOT NULL,
			last_block_height BIGINT,
			last_block_height_yet BIGINT NOT NULL,
			akt_price DOUBLE PRECISION
		);
	`},
	{db.TableBlocks, `
		CREATE TABLE IF NOT EXISTS blocks (
			height BIGINT PRIMARY KEY,
			hash TEXT NOT NULL,
			datetime TIMESTAMP WITH TIME ZONE NOT NULL,
			proposer TEXT NOT NULL DEFAULT '',
			day_id UUID NOT NULL,
			tx_count INTEGER NOT NULL DEFAULT 0,
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			total_tx_count BIGINT NOT NULL DEFAULT 0,
			total_uakt_spent NUMERIC NOT NULL DEFAULT 0,
			active_lease_count BIGINT NOT NULL DEFAULT 0,
			total_lease_count BIGINT NOT NULL DEFAULT 0,
			active_cpu BIGINT NOT NULL DEFAULT 0,
			active_memory BIGINT NOT NULL DEFAULT 0,
			active_storage BIGINT NOT NULL DEFAULT 0,
			active_provider_count BIGINT NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_blocks_unprocessed ON blocks(height) WHERE NOT is_processed;
		CREATE INDEX IF NOT EXISTS idx_blocks_day ON blocks(day_id);
	`},
	{db.TableTransactions, `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			hash TEXT NOT NULL,
			height BIGINT NOT NULL,
			tx_index INTEGER NOT NULL,
			msg_count INTEGER NOT NULL DEFAULT 0,
			fee NUMERIC NOT NULL DEFAULT 0,
			memo TEXT NOT NULL DEFAULT '',
			gas_wanted BIGINT NOT NULL DEFAULT 0,
			gas_used BIGINT NOT NULL DEFAULT 0,
			log TEXT NOT NULL DEFAULT '',
			downloaded BOOLEAN NOT NULL DEFAULT FALSE,
			has_download_error BOOLEAN NOT NULL DEFAULT FALSE,
			has_processing_error BOOLEAN NOT NULL DEFAULT FALSE,
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (height, tx_index)
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_hash ON transactions(hash);
		CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions(height, tx_index) WHERE NOT downloaded;
	`},
	{db.TableMessages, `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			tx_id UUID NOT NULL,
			height BIGINT NOT NULL,
			type TEXT NOT NULL,
			type_group TEXT NOT NULL DEFAULT '',
			msg_index INTEGER NOT NULL,
			index_in_block INTEGER NOT NULL,
			is_processed BOOLEAN NOT NULL DEFAULT FALSE,
			related_deployment_id UUID
		);

		CREATE INDEX IF NOT EXISTS idx_messages_tx ON messages(tx_id, msg_index);
		CREATE INDEX IF NOT EXISTS idx_messages_height ON messages(height);
		CREATE INDEX IF NOT EXISTS idx_messages_deployment ON messages(related_deployment_id);
	`},
	{db.TableDeployments, `
		CREATE TABLE IF NOT EXISTS deployments (
			id UUID PRIMARY KEY,
			owner TEXT NOT NULL,
			dseq BIGINT NOT NULL,
			denom TEXT NOT NULL DEFAULT 'uakt',
			deposit NUMERIC NOT NULL,
			balance NUMERIC NOT NULL CHECK (balance >= 0),
			withdrawn_amount NUMERIC NOT NULL DEFAULT 0,
			last_withdraw_height BIGINT NOT NULL,
			created_height BIGINT NOT NULL,
			closed_height BIGINT,
			UNIQUE (owner, dseq)
		);
	`},
	{db.TableDeploymentGroups, `
		CREATE TABLE IF NOT EXISTS deployment_groups (
			id UUID PRIMARY KEY,
			deployment_id UUID NOT NULL,
			owner TEXT NOT NULL,
			dseq BIGINT NOT NULL,
			gseq BIGINT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			UNIQUE (owner, dseq, gseq)
		);
	`},
	{db.TableDeploymentGroupResources, `
		CREATE TABLE IF NOT EXISTS deployment_group_resources (
			id UUID PRIMARY KEY,
			deployment_group_id UUID NOT NULL,
			cpu_units BIGINT NOT NULL DEFAULT 0,
			memory_quantity BIGINT NOT NULL DEFAULT 0,
			storage_quantity BIGINT NOT NULL DEFAULT 0,
			gpu_units BIGINT NOT NULL DEFAULT 0,
			count BIGINT NOT NULL DEFAULT 1,
			price NUMERIC NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_group_resources_group ON deployment_group_resources(deployment_group_id);
	`},
	{db.TableLeases, `
		CREATE TABLE IF NOT EXISTS leases (
			id UUID PRIMARY KEY,
			deployment_id UUID NOT NULL,
			deployment_group_id UUID NOT NULL,
			owner TEXT NOT NULL,
			dseq BIGINT NOT NULL,
			gseq BIGINT NOT NULL,
			oseq BIGINT NOT NULL,
			provider_address TEXT NOT NULL,
			denom TEXT NOT NULL DEFAULT 'uakt',
			price NUMERIC NOT NULL,
			withdrawn_amount NUMERIC NOT NULL DEFAULT 0,
			created_height BIGINT NOT NULL,
			closed_height BIGINT,
			predicted_closed_height BIGINT NOT NULL,
			cpu_units BIGINT NOT NULL DEFAULT 0,
			memory_quantity BIGINT NOT NULL DEFAULT 0,
			storage_quantity BIGINT NOT NULL DEFAULT 0,
			gpu_units BIGINT NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_leases_deployment ON leases(deployment_id);
		CREATE INDEX IF NOT EXISTS idx_leases_open ON leases(predicted_closed_height) WHERE closed_height IS NULL;
	`},
	{db.TableBids, `
		CREATE TABLE IF NOT EXISTS bids (
			owner TEXT NOT NULL,
			dseq BIGINT NOT NULL,
			gseq BIGINT NOT NULL,
			oseq BIGINT NOT NULL,
			provider TEXT NOT NULL,
			denom TEXT NOT NULL DEFAULT 'uakt',
			price NUMERIC NOT NULL,
			deposit NUMERIC NOT NULL DEFAULT 0,
			created_height BIGINT NOT NULL,
			PRIMARY KEY (owner, dseq, gseq, oseq, provider)
		);
	`},
	{db.TableProviders, `
		CREATE TABLE IF NOT EXISTS providers (
			owner TEXT PRIMARY KEY,
			host_uri TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			created_height BIGINT NOT NULL,
			updated_height BIGINT NOT NULL,
			deleted_height BIGINT
		);
	`},
	{db.TableProviderAttributes, `
		CREATE TABLE IF NOT EXISTS provider_attributes (
			provider TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (provider, key)
		);
	`},
	{db.TableProviderAttributeSignatures, `
		CREATE TABLE IF NOT EXISTS provider_attribute_signatures (
			provider TEXT NOT NULL,
			auditor TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (provider, auditor, key)
		);
	`},
	{db.TableValidators, `
		CREATE TABLE IF NOT EXISTS validators (
			operator_address TEXT PRIMARY KEY,
			account_address TEXT NOT NULL DEFAULT '',
			hex_address TEXT NOT NULL DEFAULT '',
			created_msg_id UUID,
			created_height BIGINT NOT NULL DEFAULT 0,
			moniker TEXT NOT NULL DEFAULT '',
			identity TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			security_contact TEXT NOT NULL DEFAULT '',
			rate NUMERIC NOT NULL DEFAULT 0,
			max_rate NUMERIC NOT NULL DEFAULT 0,
			max_change_rate NUMERIC NOT NULL DEFAULT 0,
			min_self_delegation NUMERIC NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_validators_hex ON validators(hex_address);
	`},
	{db.TableTransfers, `
		CREATE TABLE IF NOT EXISTS transfers (
			id UUID PRIMARY KEY,
			message_id UUID,
			height BIGINT NOT NULL,
			from_address TEXT NOT NULL,
			to_address TEXT NOT NULL,
			denom TEXT NOT NULL,
			amount NUMERIC NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_address);
		CREATE INDEX IF NOT EXISTS idx_transfers_to ON transfers(to_address);
	`},
	{db.TableProposals, `
		CREATE TABLE IF NOT EXISTS proposals (
			id BIGINT PRIMARY KEY,
			message_id UUID,
			height BIGINT NOT NULL,
			proposer TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			initial_deposit NUMERIC NOT NULL DEFAULT 0,
			plan_name TEXT NOT NULL DEFAULT '',
			plan_height BIGINT NOT NULL DEFAULT 0,
			recipient TEXT NOT NULL DEFAULT '',
			spend_amount NUMERIC NOT NULL DEFAULT 0
		);
	`},
	{db.TableProposalParameterChanges, `
		CREATE TABLE IF NOT EXISTS proposal_parameter_changes (
			proposal_id BIGINT NOT NULL,
			change_index INTEGER NOT NULL,
			subspace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (proposal_id, change_index)
		);
	`},
}

func ddlFor(table string) (string, bool) {
	for _, t := range tableDDL {
		if t.name == table {
			return t.ddl, true
		}
	}
	return "", false
}
