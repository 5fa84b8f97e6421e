package db

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fabworks/fabshop-backend/pkg/config"
)

func testClient(t *testing.T) *Client {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	client, err := New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL)`).Error)
	return client
}

func countNotes(t *testing.T, client *Client) int64 {
	t.Helper()

	var count int64
	require.NoError(t, client.DB().Table("notes").Count(&count).Error)
	return count
}

func TestWithTxCommits(t *testing.T) {
	client := testClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO notes (body) VALUES ('first')`).Error; err != nil {
			return err
		}
		return tx.Exec(`INSERT INTO notes (body) VALUES ('second')`).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), countNotes(t, client))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := testClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Exec(`INSERT INTO notes (body) VALUES ('doomed')`).Error; err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.EqualError(t, err, "abort")
	assert.Equal(t, int64(0), countNotes(t, client), "insert does not survive the rollback")
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "oracle", DSN: "x"}, nil)
	require.Error(t, err)
}
