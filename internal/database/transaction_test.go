package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDB struct {
	query string
	vars  map[string]interface{}
}

func (r *recordingDB) Connect(ctx context.Context) error { return nil }
func (r *recordingDB) Close() error                      { return nil }
func (r *recordingDB) Ping(ctx context.Context) error    { return nil }
func (r *recordingDB) Query(ctx context.Context, q string, v map[string]interface{}) ([]interface{}, error) {
	r.query, r.vars = q, v
	return []interface{}{}, nil
}
func (r *recordingDB) QueryOne(ctx context.Context, q string, v map[string]interface{}) (interface{}, error) {
	return nil, ErrNotFound
}
func (r *recordingDB) Execute(ctx context.Context, q string, v map[string]interface{}) error {
	r.query, r.vars = q, v
	return nil
}

func TestBatch_NamespacesVariables(t *testing.T) {
	b := NewBatch().
		Add("UPDATE type::record($id) SET status = $status", map[string]interface{}{"id": "meetup_rsvps:1", "status": "attending"}).
		Add("UPDATE type::record($id) SET attendee_count = 3;", map[string]interface{}{"id": "meetups:9"})

	query, vars := b.Build()

	assert.True(t, strings.HasPrefix(query, "BEGIN TRANSACTION;"))
	assert.True(t, strings.HasSuffix(query, "COMMIT TRANSACTION;"))
	assert.Contains(t, query, "type::record($v1_id) SET status = $v1_status;")
	assert.Contains(t, query, "type::record($v2_id) SET attendee_count = 3;")
	assert.NotContains(t, query, ";;")
	assert.Equal(t, "meetup_rsvps:1", vars["v1_id"])
	assert.Equal(t, "meetups:9", vars["v2_id"])
	assert.Equal(t, 2, b.Len())
}

func TestBatch_LongerNamesRewrittenFirst(t *testing.T) {
	b := NewBatch().Add("SELECT * FROM x WHERE a = $meetup AND b = $meetup_id",
		map[string]interface{}{"meetup": 1, "meetup_id": 2})

	query, vars := b.Build()
	assert.Contains(t, query, "$v1_meetup AND b = $v1_meetup_id")
	assert.Equal(t, 1, vars["v1_meetup"])
	assert.Equal(t, 2, vars["v1_meetup_id"])
}

func TestBatch_EmptyRunIsNoop(t *testing.T) {
	db := &recordingDB{}
	res, err := NewBatch().Run(context.Background(), db)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, db.query)
}

func TestFirstRecord(t *testing.T) {
	_, err := FirstRecord(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = FirstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": []interface{}{}}})
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := FirstRecord([]interface{}{map[string]interface{}{
		"status": "OK",
		"result": []interface{}{map[string]interface{}{"name": "a"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "a", rec.(map[string]interface{})["name"])

	scalar, err := FirstRecord([]interface{}{map[string]interface{}{"status": "OK", "result": uint64(4)}})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), scalar)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("Database index `meetup_rsvps_unique` already contains ['a', 'b']"), ErrDuplicate)
	assert.ErrorIs(t, classify("Parse error"), ErrQuery)
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	migs, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migs, 4)
	assert.Contains(t, migs[0], "DEFINE TABLE IF NOT EXISTS user")
	assert.Contains(t, migs[1], "meetup_rsvps_unique")
	assert.Contains(t, migs[3], "suggestion_votes_unique")

	db := &recordingDB{}
	require.NoError(t, Migrate(context.Background(), db))
	assert.Contains(t, db.query, "suggestion_votes")
}
