package common_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	jsoniter "github.com/json-iterator/go"

	"github.com/boutiqueapp/boutique/pkg/common"
)

func TestUUIDint64Unique(t *testing.T) {
	c := qt.New(t)

	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := common.UUIDint64()
		c.Assert(seen[id], qt.IsFalse)
		seen[id] = true
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	c := qt.New(t)

	hash, err := common.HashPassword("secret123")
	c.Assert(err, qt.IsNil)
	c.Assert(hash, qt.Not(qt.Equals), "secret123")
	c.Assert(common.CheckPassword(hash, "secret123"), qt.IsTrue)
	c.Assert(common.CheckPassword(hash, "wrong"), qt.IsFalse)
}

func TestStringHelpers(t *testing.T) {
	c := qt.New(t)

	c.Assert(common.NormalizeEmail("  Foo@Example.COM "), qt.Equals, "foo@example.com")
	c.Assert(common.IsEmpty("   "), qt.IsTrue)
	c.Assert(common.ParseInt64("42", 0), qt.Equals, int64(42))
	c.Assert(common.ParseInt64("x", 7), qt.Equals, int64(7))
	c.Assert(common.StringPtr("  "), qt.IsNil)
	c.Assert(*common.StringPtr(" a "), qt.Equals, "a")
	c.Assert(common.Deref(nil), qt.Equals, "")
}

func TestNullIDJSON(t *testing.T) {
	c := qt.New(t)
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	type ref struct {
		PromotionID common.NullID `json:"promotion_id"`
	}

	out, err := json.Marshal(ref{})
	c.Assert(err, qt.IsNil)
	c.Assert(string(out), qt.Equals, `{"promotion_id":null}`)
	var back ref
	c.Assert(json.Unmarshal(out, &back), qt.IsNil)
	c.Assert(back.PromotionID.Valid, qt.IsFalse)

	out, err = json.Marshal(ref{PromotionID: common.NewNullID(1234567890123)})
	c.Assert(err, qt.IsNil)
	c.Assert(string(out), qt.Equals, `{"promotion_id":"1234567890123"}`)
	c.Assert(json.Unmarshal(out, &back), qt.IsNil)
	c.Assert(back.PromotionID, qt.Equals, common.NewNullID(1234567890123))

	c.Assert(json.Unmarshal([]byte(`{"promotion_id":42}`), &back), qt.IsNil)
	c.Assert(back.PromotionID.Is(42), qt.IsTrue)
	c.Assert(json.Unmarshal([]byte(`{"promotion_id":""}`), &back), qt.IsNil)
	c.Assert(back.PromotionID.Valid, qt.IsFalse)
	c.Assert(json.Unmarshal([]byte(`{"promotion_id":"x1"}`), &back), qt.IsNotNil)
}

func TestNullIDSQL(t *testing.T) {
	c := qt.New(t)

	var n common.NullID
	c.Assert(n.Scan(int64(9)), qt.IsNil)
	c.Assert(n, qt.Equals, common.NewNullID(9))
	v, err := n.Value()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, int64(9))

	c.Assert(n.Scan(nil), qt.IsNil)
	c.Assert(n.Valid, qt.IsFalse)
	v, err = n.Value()
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.IsNil)
}
