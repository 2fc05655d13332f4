package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/examenapp/examen-api/internal/models"
)

// RegisterDeviceToken upserts a push target. A token that re-registers
// under a different user moves to that user.
func RegisterDeviceToken(ctx context.Context, db *sql.DB, userID int64, token, platform string) (*models.DeviceToken, error) {
	dt := &models.DeviceToken{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO device_tokens (user_id, token, platform, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
		 RETURNING id, user_id, token, platform, created_at`,
		userID, token, platform).Scan(
		&dt.ID,
		&dt.UserID,
		&dt.Token,
		&dt.Platform,
		&dt.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("register device token: %w", err)
	}

	return dt, nil
}

func ListDeviceTokens(ctx context.Context, db *sql.DB, userID int64) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT token FROM device_tokens WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tokens, nil
}

// DeleteDeviceToken removes a token, typically after FCM reports it as no
// longer registered.
func DeleteDeviceToken(ctx context.Context, db *sql.DB, token string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM device_tokens WHERE token = $1", token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}
