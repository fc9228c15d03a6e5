package snapshot

import (
	"bytes"
	"errors"
	"testing"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/pipeline"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

// settledScene runs a small mixed scene for a while so that the world holds
// non-trivial state: manifolds with accumulated impulses, sleep timers, a
// joint, and a removed body's hole in the pool.
func settledScene(t *testing.T) (*pipeline.Engine, int) {
	t.Helper()
	w := world.New()

	gb, err := w.InsertBody(body.New(body.Static, mathx.V(0, -0.5), 0))
	if err != nil {
		t.Fatalf("insert ground: %v", err)
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewBox(20, 0.5)), gb); err != nil {
		t.Fatalf("insert ground collider: %v", err)
	}

	var balls []store.Handle
	for i := 0; i < 3; i++ {
		bh, err := w.InsertBody(body.New(body.Dynamic, mathx.V(float64(i)*1.5, 1.0+float64(i)*0.3), 0))
		if err != nil {
			t.Fatalf("insert ball: %v", err)
		}
		if _, err := w.InsertCollider(body.NewCollider(geom.NewCircle(0.5)), bh); err != nil {
			t.Fatalf("insert collider: %v", err)
		}
		balls = append(balls, bh)
	}

	if _, err := w.InsertJoint(body.NewJoint(body.JointRevolute, balls[0], balls[1], mathx.V(0.75, 0), mathx.V(-0.75, 0))); err != nil {
		t.Fatalf("insert joint: %v", err)
	}

	// Punch a hole into the body pool so the snapshot must reproduce the
	// free list, not just the occupied slots.
	if err := w.RemoveBody(balls[2]); err != nil {
		t.Fatalf("remove body: %v", err)
	}

	eng := pipeline.New(w)
	cfg := pipeline.DefaultConfig()
	cfg.Parallel = false
	for i := 0; i < 90; i++ {
		if _, err := eng.Step(1.0/60.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return eng, 90
}

func encode(t *testing.T, eng *pipeline.Engine) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, eng.World(), eng.Contacts(), eng.PrevDt()); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return buf.Bytes()
}

func TestSnapshotBytesAreStable(t *testing.T) {
	eng, _ := settledScene(t)
	first := encode(t, eng)
	second := encode(t, eng)
	if !bytes.Equal(first, second) {
		t.Fatal("two encodings of the same state differ")
	}
}

func TestSnapshotRoundTripIsByteExact(t *testing.T) {
	eng, _ := settledScene(t)
	blob := encode(t, eng)

	w2, contacts, prevDt, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	eng2 := pipeline.New(w2)
	eng2.RestoreContacts(contacts)
	eng2.RestorePrevDt(prevDt)

	blob2 := encode(t, eng2)
	if !bytes.Equal(blob, blob2) {
		t.Fatal("decode-reencode is not byte identical")
	}
}

func TestRestoredSimulationContinuesIdentically(t *testing.T) {
	eng, _ := settledScene(t)
	blob := encode(t, eng)

	w2, contacts, prevDt, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	eng2 := pipeline.New(w2)
	eng2.RestoreContacts(contacts)
	eng2.RestorePrevDt(prevDt)

	cfg := pipeline.DefaultConfig()
	cfg.Parallel = false
	for i := 0; i < 60; i++ {
		if _, err := eng.Step(1.0/60.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("original step %d: %v", i, err)
		}
		if _, err := eng2.Step(1.0/60.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("restored step %d: %v", i, err)
		}
	}

	a := encode(t, eng)
	b := encode(t, eng2)
	if !bytes.Equal(a, b) {
		t.Fatal("original and restored runs diverged after continuation")
	}
}

// Warm starting scales cached impulses by the ratio of the current to the
// previous timestep, so a restored run must pick up the previous dt from the
// snapshot or its first step after a dt change diverges from the original.
func TestRestoredRunMatchesUnderChangedTimestep(t *testing.T) {
	w := world.New()
	gb, err := w.InsertBody(body.New(body.Static, mathx.V(0, -0.5), 0))
	if err != nil {
		t.Fatalf("insert ground: %v", err)
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewBox(10, 0.5)), gb); err != nil {
		t.Fatalf("insert ground collider: %v", err)
	}
	bh, err := w.InsertBody(body.New(body.Dynamic, mathx.V(0, 0.6), 0))
	if err != nil {
		t.Fatalf("insert ball: %v", err)
	}
	if _, err := w.InsertCollider(body.NewCollider(geom.NewCircle(0.5)), bh); err != nil {
		t.Fatalf("insert ball collider: %v", err)
	}

	eng := pipeline.New(w)
	cfg := pipeline.DefaultConfig()
	cfg.Parallel = false
	// Keep the resting contact awake so its cached impulses stay in play.
	cfg.Sleep.TimeToSleep = 1e9
	for i := 0; i < 40; i++ {
		if _, err := eng.Step(1.0/60.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("settle step %d: %v", i, err)
		}
	}

	blob := encode(t, eng)
	w2, contacts, prevDt, err := Read(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if prevDt != eng.PrevDt() {
		t.Fatalf("prevDt = %v, want %v", prevDt, eng.PrevDt())
	}
	eng2 := pipeline.New(w2)
	eng2.RestoreContacts(contacts)
	eng2.RestorePrevDt(prevDt)

	// Continuing at a different rate makes the first step's dt ratio 0.625
	// rather than 1, which only matches when prevDt survived the round trip.
	for i := 0; i < 20; i++ {
		if _, err := eng.Step(1.0/96.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("original step %d: %v", i, err)
		}
		if _, err := eng2.Step(1.0/96.0, mathx.V(0, -9.81), cfg); err != nil {
			t.Fatalf("restored step %d: %v", i, err)
		}
	}
	if !bytes.Equal(encode(t, eng), encode(t, eng2)) {
		t.Fatal("runs diverged after the timestep change")
	}
}

func TestRestorePreservesHandleIdentity(t *testing.T) {
	w := world.New()
	first, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(0, 0), 0))
	second, _ := w.InsertBody(body.New(body.Dynamic, mathx.V(1, 0), 0))
	if err := w.RemoveBody(first); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var buf bytes.Buffer
	eng := pipeline.New(w)
	if err := Write(&buf, w, eng.Contacts(), eng.PrevDt()); err != nil {
		t.Fatalf("write: %v", err)
	}
	w2, _, _, err := Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Live handles resolve, removed ones fail, in both worlds alike.
	if _, err := w2.Body(second); err != nil {
		t.Errorf("live handle does not resolve after restore: %v", err)
	}
	if _, err := w2.Body(first); err == nil {
		t.Error("removed handle resolves after restore")
	}

	// Slot reuse order must match: the next insert lands in the same slot
	// with the same generation in both worlds.
	h1, _ := w.InsertBody(body.New(body.Dynamic, mathx.Vec2{}, 0))
	h2, _ := w2.InsertBody(body.New(body.Dynamic, mathx.Vec2{}, 0))
	if h1 != h2 {
		t.Errorf("slot reuse diverged: original %v, restored %v", h1, h2)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	blob := []byte("NOPE....................")
	if _, _, _, err := Read(bytes.NewReader(blob)); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}

func TestReadRejectsFutureVersion(t *testing.T) {
	eng, _ := settledScene(t)
	blob := encode(t, eng)
	blob[4] = 0xFF // major in the version field
	blob[5] = 0xFF
	if _, _, _, err := Read(bytes.NewReader(blob)); !errors.Is(err, ErrVersion) {
		t.Errorf("err = %v, want ErrVersion", err)
	}
}

func TestReadRejectsTruncated(t *testing.T) {
	eng, _ := settledScene(t)
	blob := encode(t, eng)
	if _, _, _, err := Read(bytes.NewReader(blob[:len(blob)/2])); err == nil {
		t.Error("truncated snapshot decoded without error")
	}
}
