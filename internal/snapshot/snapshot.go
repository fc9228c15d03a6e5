// Package snapshot serializes the full object store plus the persistent
// contact set to a byte-exact portable image. Floats travel as their IEEE
// 754 bit patterns, so a restored world continues bit-identically to the
// original: positions, velocities, impulse accumulators, sleep timers,
// handle generations, the previous timestep and even the pools' slot-reuse
// order all round-trip.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/rigid2d/internal/body"
	"github.com/san-kum/rigid2d/internal/geom"
	"github.com/san-kum/rigid2d/internal/mathx"
	"github.com/san-kum/rigid2d/internal/narrowphase"
	"github.com/san-kum/rigid2d/internal/store"
	"github.com/san-kum/rigid2d/internal/world"
)

var magic = [4]byte{'R', '2', 'D', 'S'}

const version uint16 = 1

// Domain errors for checkpoint decoding.
var (
	// ErrBadMagic indicates the stream is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")

	// ErrVersion indicates a snapshot written by an incompatible version.
	ErrVersion = errors.New("snapshot: unsupported version")

	// ErrCorrupt indicates a structurally invalid snapshot.
	ErrCorrupt = errors.New("snapshot: corrupt stream")
)

// coder wraps a stream with a sticky error so record layouts read as
// straight-line field lists.
type coder struct {
	w   io.Writer
	r   io.Reader
	err error
	buf [8]byte
}

func (c *coder) u8(v *uint8) {
	if c.err != nil {
		return
	}
	if c.w != nil {
		c.buf[0] = *v
		_, c.err = c.w.Write(c.buf[:1])
		return
	}
	if _, c.err = io.ReadFull(c.r, c.buf[:1]); c.err == nil {
		*v = c.buf[0]
	}
}

func (c *coder) u16(v *uint16) {
	if c.err != nil {
		return
	}
	if c.w != nil {
		binary.LittleEndian.PutUint16(c.buf[:2], *v)
		_, c.err = c.w.Write(c.buf[:2])
		return
	}
	if _, c.err = io.ReadFull(c.r, c.buf[:2]); c.err == nil {
		*v = binary.LittleEndian.Uint16(c.buf[:2])
	}
}

func (c *coder) u32(v *uint32) {
	if c.err != nil {
		return
	}
	if c.w != nil {
		binary.LittleEndian.PutUint32(c.buf[:4], *v)
		_, c.err = c.w.Write(c.buf[:4])
		return
	}
	if _, c.err = io.ReadFull(c.r, c.buf[:4]); c.err == nil {
		*v = binary.LittleEndian.Uint32(c.buf[:4])
	}
}

func (c *coder) f64(v *float64) {
	if c.err != nil {
		return
	}
	if c.w != nil {
		binary.LittleEndian.PutUint64(c.buf[:8], math.Float64bits(*v))
		_, c.err = c.w.Write(c.buf[:8])
		return
	}
	if _, c.err = io.ReadFull(c.r, c.buf[:8]); c.err == nil {
		*v = math.Float64frombits(binary.LittleEndian.Uint64(c.buf[:8]))
	}
}

func (c *coder) flag(v *bool) {
	var b uint8
	if *v {
		b = 1
	}
	c.u8(&b)
	*v = b != 0
}

func (c *coder) vec2(v *mathx.Vec2) {
	c.f64(&v[0])
	c.f64(&v[1])
}

func (c *coder) handle(h *store.Handle) {
	c.u32(&h.Index)
	c.u32(&h.Generation)
}

func (c *coder) sweep(s *mathx.Sweep) {
	c.vec2(&s.LocalCenter)
	c.vec2(&s.C0)
	c.vec2(&s.C)
	c.f64(&s.A0)
	c.f64(&s.A)
	c.f64(&s.Alpha0)
}

func (c *coder) transform(t *mathx.Transform) {
	c.vec2(&t.P)
	c.f64(&t.Q.S)
	c.f64(&t.Q.C)
}

// Write serializes the world, the contact set and the previous timestep.
func Write(w io.Writer, wd *world.World, contacts *narrowphase.Set, prevDt float64) error {
	c := &coder{w: w}

	hdr := magic
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	v := version
	c.u16(&v)
	c.f64(&prevDt)

	writePoolLayout(c, poolLayout(wd.Bodies))
	wd.Bodies.ForEach(func(_ store.Handle, b **body.Body) {
		c.body(*b)
	})

	writePoolLayout(c, poolLayout(wd.Colliders))
	wd.Colliders.ForEach(func(_ store.Handle, col **body.Collider) {
		c.collider(*col)
	})

	writePoolLayout(c, poolLayout(wd.Joints))
	wd.Joints.ForEach(func(_ store.Handle, j **body.Joint) {
		c.joint(*j)
	})

	c.f64(&contacts.WarmStartTolerance)
	pairs := contacts.Pairs()
	n := uint32(len(pairs))
	c.u32(&n)
	for _, p := range pairs {
		ct, _ := contacts.Lookup(p)
		pc := p
		c.handle(&pc.A)
		c.handle(&pc.B)
		c.contact(ct)
	}

	return c.err
}

// Read deserializes a snapshot written by Write.
func Read(r io.Reader) (*world.World, *narrowphase.Set, float64, error) {
	c := &coder{r: r}

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, nil, 0, err
	}
	if hdr != magic {
		return nil, nil, 0, ErrBadMagic
	}
	var v uint16
	c.u16(&v)
	if c.err == nil && v != version {
		return nil, nil, 0, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	var prevDt float64
	c.f64(&prevDt)

	wd := world.New()

	layout, live := readPoolLayout(c)
	wd.Bodies.Restore(layout.capacity, layout.generations, layout.occupied, layout.free)
	for _, i := range live {
		b := &body.Body{}
		c.body(b)
		wd.Bodies.RestoreValue(i, b)
	}

	layout, live = readPoolLayout(c)
	wd.Colliders.Restore(layout.capacity, layout.generations, layout.occupied, layout.free)
	for _, i := range live {
		col := &body.Collider{Proxy: -1}
		c.collider(col)
		wd.Colliders.RestoreValue(i, col)
	}

	layout, live = readPoolLayout(c)
	wd.Joints.Restore(layout.capacity, layout.generations, layout.occupied, layout.free)
	for _, i := range live {
		j := &body.Joint{}
		c.joint(j)
		wd.Joints.RestoreValue(i, j)
	}

	contacts := narrowphase.NewSet()
	c.f64(&contacts.WarmStartTolerance)
	var n uint32
	c.u32(&n)
	for i := uint32(0); i < n && c.err == nil; i++ {
		var p narrowphase.PairKey
		c.handle(&p.A)
		c.handle(&p.B)
		ct := &narrowphase.Contact{}
		c.contact(ct)
		contacts.Install(p, ct)
	}

	if c.err != nil {
		return nil, nil, 0, c.err
	}
	wd.RebuildIndex()
	return wd, contacts, prevDt, nil
}

type layout struct {
	capacity    int
	generations []uint32
	occupied    []bool
	free        []uint32
}

func poolLayout[T any](p *store.Pool[T]) layout {
	l := layout{
		capacity:    p.Capacity(),
		generations: make([]uint32, p.SlotCount()),
		occupied:    make([]bool, p.SlotCount()),
		free:        p.FreeList(),
	}
	for i := 0; i < p.SlotCount(); i++ {
		l.generations[i] = p.GenerationAt(i)
		_, _, l.occupied[i] = p.At(i)
	}
	return l
}

func writePoolLayout(c *coder, l layout) {
	capacity := uint32(l.capacity)
	slots := uint32(len(l.generations))
	c.u32(&capacity)
	c.u32(&slots)
	for i := range l.generations {
		c.u32(&l.generations[i])
		c.flag(&l.occupied[i])
	}
	freeLen := uint32(len(l.free))
	c.u32(&freeLen)
	for i := range l.free {
		c.u32(&l.free[i])
	}
}

// readPoolLayout returns the decoded layout plus the occupied slot indices
// in ascending order, matching the record order Write produced.
func readPoolLayout(c *coder) (layout, []int) {
	var l layout
	var capacity, slots uint32
	c.u32(&capacity)
	c.u32(&slots)
	if c.err != nil {
		return l, nil
	}
	if slots > 1<<24 {
		c.err = ErrCorrupt
		return l, nil
	}
	l.capacity = int(capacity)
	l.generations = make([]uint32, slots)
	l.occupied = make([]bool, slots)
	var live []int
	for i := range l.generations {
		c.u32(&l.generations[i])
		c.flag(&l.occupied[i])
		if l.occupied[i] {
			live = append(live, i)
		}
	}
	var freeLen uint32
	c.u32(&freeLen)
	if c.err != nil || freeLen > slots {
		if c.err == nil {
			c.err = ErrCorrupt
		}
		return l, nil
	}
	l.free = make([]uint32, freeLen)
	for i := range l.free {
		c.u32(&l.free[i])
	}
	return l, live
}

func (c *coder) body(b *body.Body) {
	kind := uint8(b.Kind)
	c.u8(&kind)
	b.Kind = body.Kind(kind)

	c.flag(&b.Bullet)
	c.flag(&b.Awake)
	c.flag(&b.AllowSleep)

	c.transform(&b.Xf)
	c.sweep(&b.Sweep)

	c.vec2(&b.LinearVelocity)
	c.f64(&b.AngularVelocity)
	c.vec2(&b.Force)
	c.f64(&b.Torque)

	c.f64(&b.Mass)
	c.f64(&b.InvMass)
	c.f64(&b.I)
	c.f64(&b.InvI)

	c.f64(&b.LinearDamping)
	c.f64(&b.AngularDamping)
	c.f64(&b.GravityScale)

	c.f64(&b.SleepTime)
	c.f64(&b.Energy)
}

func (c *coder) shape(s *geom.Shape) {
	kind := uint8(s.Kind)
	c.u8(&kind)
	s.Kind = geom.Kind(kind)

	c.f64(&s.Radius)

	nv := uint8(len(s.Verts))
	nn := uint8(len(s.Normals))
	c.u8(&nv)
	c.u8(&nn)
	if c.r != nil {
		if int(nv) > geom.MaxPolygonVerts || int(nn) > geom.MaxPolygonVerts {
			c.err = ErrCorrupt
			return
		}
		s.Verts = make([]mathx.Vec2, nv)
		s.Normals = make([]mathx.Vec2, nn)
	}
	for i := 0; i < int(nv) && c.err == nil; i++ {
		c.vec2(&s.Verts[i])
	}
	for i := 0; i < int(nn) && c.err == nil; i++ {
		c.vec2(&s.Normals[i])
	}
	c.vec2(&s.Centroid)
}

func (c *coder) collider(col *body.Collider) {
	if c.r != nil {
		col.Shape = &geom.Shape{}
	}
	c.shape(col.Shape)

	c.f64(&col.Density)
	c.f64(&col.Friction)
	c.f64(&col.Restitution)

	c.u16(&col.Filter.Category)
	c.u16(&col.Filter.Mask)
	group := uint16(col.Filter.Group)
	c.u16(&group)
	col.Filter.Group = int16(group)

	c.handle(&col.Body)
}

func (c *coder) joint(j *body.Joint) {
	typ := uint8(j.Type)
	c.u8(&typ)
	j.Type = body.JointType(typ)

	c.flag(&j.EnableLimit)
	c.flag(&j.EnableMotor)

	c.handle(&j.BodyA)
	c.handle(&j.BodyB)

	c.vec2(&j.LocalAnchorA)
	c.vec2(&j.LocalAnchorB)
	c.f64(&j.ReferenceAngle)
	c.vec2(&j.LocalAxisA)

	c.f64(&j.LowerLimit)
	c.f64(&j.UpperLimit)
	c.f64(&j.MotorSpeed)
	c.f64(&j.MaxMotorForce)

	c.vec2(&j.Impulse)
	c.f64(&j.AxialImpulse)
	c.f64(&j.MotorImpulse)
	c.f64(&j.AngleImpulse)
}

func (c *coder) contact(ct *narrowphase.Contact) {
	c.handle(&ct.ColliderA)
	c.handle(&ct.ColliderB)
	c.handle(&ct.BodyA)
	c.handle(&ct.BodyB)

	c.f64(&ct.Friction)
	c.f64(&ct.Restitution)
	c.flag(&ct.Touching)

	m := &ct.Manifold
	typ := uint8(m.Type)
	c.u8(&typ)
	m.Type = narrowphase.ManifoldType(typ)

	c.vec2(&m.LocalNormal)
	c.vec2(&m.LocalPoint)

	count := uint8(m.Count)
	c.u8(&count)
	if c.r != nil && int(count) > narrowphase.MaxManifoldPoints {
		c.err = ErrCorrupt
		return
	}
	m.Count = int(count)
	for i := 0; i < m.Count && c.err == nil; i++ {
		p := &m.Points[i]
		c.vec2(&p.LocalPoint)
		c.f64(&p.NormalImpulse)
		c.f64(&p.TangentImpulse)
		c.u8(&p.Feature.IndexA)
		c.u8(&p.Feature.IndexB)
		c.u8(&p.Feature.TypeA)
		c.u8(&p.Feature.TypeB)
	}
}
