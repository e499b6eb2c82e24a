package emotionRepository

const (
	queryCreateRecord = `
		INSERT INTO emotion_records (
			id,
			client_name,
			emotion,
			created_at
		) VALUES (
			:id,
			:client_name,
			:emotion,
			:created_at
		)
	`

	queryGetRecordsByClient = `
		SELECT
			id,
			client_name,
			emotion,
			created_at
		FROM emotion_records
		WHERE client_name = :client_name
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`
)
