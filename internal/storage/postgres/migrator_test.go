package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func file(body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(body)}
}

func TestReadMigrations_SortsByVersion(t *testing.T) {
	t.Parallel()

	migrations, err := readMigrations(fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   file("CREATE TABLE b (id INT);"),
		"sql/migrations/0002_more.down.sql": file("DROP TABLE b;"),
		"sql/migrations/0001_init.up.sql":   file("CREATE TABLE a (id INT);"),
		"sql/migrations/0001_init.down.sql": file("DROP TABLE a;"),
	})
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	require.Equal(t, "0001_init", migrations[0].String())
	require.Equal(t, "0002_more", migrations[1].String())
	require.Equal(t, "DROP TABLE a;", migrations[0].script(directionDown))
}

func TestReadMigrations_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]fstest.MapFS{
		"missing down": {
			"sql/migrations/0001_init.up.sql": file("CREATE TABLE a (id INT);"),
		},
		"invalid name": {
			"sql/migrations/not_a_migration.sql": file("SELECT 1;"),
		},
		"empty body": {
			"sql/migrations/0001_init.up.sql":   file("  \n"),
			"sql/migrations/0001_init.down.sql": file("DROP TABLE a;"),
		},
		"name mismatch": {
			"sql/migrations/0001_init.up.sql":    file("CREATE TABLE a (id INT);"),
			"sql/migrations/0001_other.down.sql": file("DROP TABLE a;"),
		},
		"no files": {},
	}

	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := readMigrations(fsys)
			require.Error(t, err)
		})
	}
}

func TestReadMigrations_Embedded(t *testing.T) {
	migrations, err := readMigrations(embeddedMigrations)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, int64(1), migrations[0].Version)
	require.Contains(t, migrations[0].Up, "kv_store")
}

func TestPlanMigrations(t *testing.T) {
	all := []migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}

	up, err := planMigrations(all, []int64{1}, directionUp, 0)
	require.NoError(t, err)
	require.Equal(t, []migration{all[1], all[2]}, up)

	up, err = planMigrations(all, []int64{1}, directionUp, 1)
	require.NoError(t, err)
	require.Equal(t, []migration{all[1]}, up)

	down, err := planMigrations(all, []int64{1, 2}, directionDown, 5)
	require.NoError(t, err)
	require.Equal(t, []migration{all[1], all[0]}, down)

	_, err = planMigrations(all, []int64{7}, directionDown, 1)
	require.Error(t, err)
}
