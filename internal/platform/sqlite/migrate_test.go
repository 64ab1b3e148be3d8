package sqlite

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"m/001_create_users.up.sql":   {Data: []byte("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
		"m/001_create_users.down.sql": {Data: []byte("DROP TABLE users;")},
		"m/002_create_posts.up.sql": {Data: []byte(`CREATE TABLE posts (
    id INTEGER PRIMARY KEY,
    user_id INTEGER REFERENCES users(id),
    title TEXT NOT NULL
);`)},
		"m/002_create_posts.down.sql": {Data: []byte("DROP TABLE posts;")},
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := OpenInMemory(ctx)
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := Version(db, testMigrations(), "m")
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, Migrate(db, testMigrations(), "m"))

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('users', 'posts')").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	version, dirty, err = Version(db, testMigrations(), "m")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	assert.NoError(t, Migrate(db, testMigrations(), "m"), "re-running is a no-op")
	require.NoError(t, db.PingContext(ctx), "db stays open after migrating")
}

func TestMigrate_MissingDir(t *testing.T) {
	db, err := OpenInMemory(context.Background())
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, Migrate(db, testMigrations(), "nope"))
}
