package emotionRepository

import (
	"EmotionStream/internal/entity"
	contextPkg "EmotionStream/pkg/context"
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type EmotionRecordDB struct {
	ID         sql.NullString `db:"id"`
	ClientName sql.NullString `db:"client_name"`
	Emotion    sql.NullString `db:"emotion"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r *recordRepository) CreateRecord(ctx context.Context, record entity.EmotionRecord) error {
	requestID := contextPkg.GetRequestID(ctx)

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	argsKV := map[string]interface{}{
		"id":          record.ID,
		"client_name": record.ClientName,
		"emotion":     record.Emotion,
		"created_at":  createdAt,
	}

	query, args, err := sqlx.Named(queryCreateRecord, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRecord")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"client":     record.ClientName,
			"error":      err.Error(),
		}).Error("Database error when creating emotion record")
		return err
	}

	return nil
}

func (r *recordRepository) GetRecordsByClient(ctx context.Context, clientName string, limit int) ([]entity.EmotionRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)
	var records []EmotionRecordDB

	argsKV := map[string]interface{}{
		"client_name": clientName,
		"limit":       limit,
	}

	query, args, err := sqlx.Named(queryGetRecordsByClient, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecordsByClient named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(ctx, &records, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecordsByClient execution err")
		return nil, err
	}

	result := make([]entity.EmotionRecord, 0, len(records))
	for _, record := range records {
		result = append(result, r.makeEmotionRecord(record))
	}

	return result, nil
}

func (r *recordRepository) makeEmotionRecord(record EmotionRecordDB) entity.EmotionRecord {
	return entity.EmotionRecord{
		ID:         record.ID.String,
		ClientName: record.ClientName.String,
		Emotion:    record.Emotion.String,
		CreatedAt:  record.CreatedAt,
	}
}
