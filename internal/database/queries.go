package database

const (
	// User queries
	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email) VALUES (?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ?`

	// Wallet queries
	queryInsertWallet = `
		INSERT INTO wallets (id, owner_id, balance, currency, status)
		VALUES (?, ?, ?, ?, ?)`

	queryGetWallet = `
		SELECT id, owner_id, balance, currency, status, created_at, updated_at
		FROM wallets
		WHERE id = ?`

	queryGetWalletByOwner = `
		SELECT id, owner_id, balance, currency, status, created_at, updated_at
		FROM wallets
		WHERE owner_id = ?`

	queryListWallets = `
		SELECT id, owner_id, balance, currency, status, created_at, updated_at
		FROM wallets
		ORDER BY created_at`

	// The balance precondition lives inside the UPDATE itself: the debit
	// commits only if the row is ACTIVE and holds enough funds at the moment
	// the statement executes. No separate read-then-write window exists.
	queryDebitWallet = `
		UPDATE wallets
		SET balance = balance - ?1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?2 AND status = 'ACTIVE' AND balance >= ?1`

	queryUpdateWalletStatus = `
		UPDATE wallets
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	queryCreditWallet = `
		UPDATE wallets
		SET balance = balance + ?1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?2 AND status = 'ACTIVE'`

	// Nonce queries
	queryInsertNonce = `
		INSERT INTO used_nonces (nonce, expires_at) VALUES (?, ?)`

	queryCountNonces = `
		SELECT COUNT(*) FROM used_nonces WHERE nonce = ?`

	queryPruneNonces = `
		DELETE FROM used_nonces WHERE expires_at < ?`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (
			id, payer_wallet_id, merchant_wallet_id, amount, currency,
			type, status, nonce, idempotency_key, metadata, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, payer_wallet_id, merchant_wallet_id, amount, currency,
		          type, status, nonce, idempotency_key, metadata, created_at, completed_at`

	queryGetTransaction = `
		SELECT id, payer_wallet_id, merchant_wallet_id, amount, currency,
		       type, status, nonce, idempotency_key, metadata, created_at, completed_at
		FROM transactions
		WHERE id = ?`

	queryGetTransactionByIdempotencyKey = `
		SELECT id, payer_wallet_id, merchant_wallet_id, amount, currency,
		       type, status, nonce, idempotency_key, metadata, created_at, completed_at
		FROM transactions
		WHERE idempotency_key = ?`

	queryGetTransactionHistory = `
		SELECT id, payer_wallet_id, merchant_wallet_id, amount, currency,
		       type, status, nonce, idempotency_key, metadata, created_at, completed_at
		FROM transactions
		WHERE payer_wallet_id = ? OR merchant_wallet_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	queryCountTransactionHistory = `
		SELECT COUNT(*)
		FROM transactions
		WHERE payer_wallet_id = ? OR merchant_wallet_id = ?`

	queryReconcileWallet = `
		SELECT COALESCE(SUM(CASE
			WHEN type = 'TOPUP' THEN amount
			WHEN merchant_wallet_id = ?1 AND payer_wallet_id != ?1 THEN amount
			ELSE -amount
		END), 0)
		FROM transactions
		WHERE (payer_wallet_id = ?1 OR merchant_wallet_id = ?1) AND status = 'COMPLETED'`
)
