package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestResolvePrefersUserID(t *testing.T) {
	key := Resolve(int64Ptr(7), strPtr("sess-1"))

	assert.Equal(t, KindUser, key.Kind())
	uid, ok := key.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), uid)

	_, ok = key.SessionID()
	assert.False(t, ok)
}

func TestResolveFallsBackToSession(t *testing.T) {
	key := Resolve(nil, strPtr("sess-1"))

	assert.Equal(t, KindSession, key.Kind())
	sid, ok := key.SessionID()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", sid)
}

func TestResolveNone(t *testing.T) {
	assert.True(t, Resolve(nil, nil).IsNone())
}

func TestResolveTreatsZeroValuesAsAbsent(t *testing.T) {
	assert.True(t, Resolve(int64Ptr(0), strPtr("")).IsNone())
	assert.Equal(t, KindSession, Resolve(int64Ptr(0), strPtr("sess-1")).Kind())
}

func TestColumnsSetExactlyOneOwner(t *testing.T) {
	uid, sid := ByUser(3).Columns()
	if assert.NotNil(t, uid) {
		assert.Equal(t, int64(3), *uid)
	}
	assert.Nil(t, sid)

	uid, sid = BySession("sess-9").Columns()
	assert.Nil(t, uid)
	if assert.NotNil(t, sid) {
		assert.Equal(t, "sess-9", *sid)
	}

	uid, sid = Resolve(nil, nil).Columns()
	assert.Nil(t, uid)
	assert.Nil(t, sid)
}
