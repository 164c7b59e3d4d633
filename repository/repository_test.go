package repository

import (
	"context"
	"errors"
	"testing"

	"bosko/core/apperr"
	"bosko/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1146}))
	assert.True(t, IsDuplicate(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicate(errors.New("boom")))
	assert.False(t, IsDuplicate(nil))
}

func TestAssetCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormAssetRepository(db)

	mock.ExpectExec("INSERT INTO `asset`").WillReturnResult(sqlmock.NewResult(0, 1))

	asset := &model.Asset{UserID: 1, Name: "beat.mp3", Type: model.AssetBeat, StorageKey: "beats/1_beat.mp3"}
	require.NoError(t, repo.Create(context.Background(), asset))
	assert.Len(t, asset.ID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetGetByIDMissingReturnsNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormAssetRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `asset` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	asset, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, asset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetMarketplaceID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormAssetRepository(db)

	mock.ExpectExec("UPDATE `asset` SET `beatstars_id`=\\? WHERE id = \\?").
		WithArgs("remote-1", "a1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetMarketplaceID(context.Background(), "a1", "remote-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackUpdateIsSingleRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormTrackRepository(db)

	mock.ExpectExec("UPDATE `track` SET .*`beatstars_url`=\\?.* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "t1", map[string]interface{}{
		"beatstars_id_track": "bt-1",
		"beatstars_url":      "https://bsta.rs/x",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormTrackRepository(db)

	mock.ExpectExec("DELETE FROM `track` WHERE id = \\?").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmailMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	user, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateConnectionDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormProfileRepository(db)

	mock.ExpectExec("INSERT INTO `profile_connections`").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'p1-YOUTUBE'"})

	err := repo.CreateConnection(context.Background(), &model.ProfileConnection{
		ProfileID: "p1",
		Platform:  model.PlatformYouTube,
		OAuthID:   3,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateRefreshToken(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormCredentialRepository(db)

	mock.ExpectExec("UPDATE `oauth` SET `refresh_token`=\\?.*WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateRefreshToken(context.Background(), 7, "new-refresh"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
