package ecs

import "fmt"

// EntityID packs a slot handle into 64 bits:
//
//	bits  0-23  slot index
//	bits 24-46  generation (bumped every time the slot is reused)
//	bit  47     present flag (zero value is the empty id)
//	bits 48-63  reserved; used transiently by the world grid as a cell lock marker
//
// Two ids are equal only when every field matches, so a handle to a recycled
// slot never aliases the slot's new occupant.
type EntityID uint64

const (
	indexBits      = 24
	generationBits = 23

	indexMask       = 1<<indexBits - 1
	generationShift = indexBits
	generationMask  = 1<<generationBits - 1
	presentBit      = EntityID(1) << (indexBits + generationBits)
	reservedShift   = 48

	// MaxSlots is the number of addressable slots.
	MaxSlots = 1 << indexBits

	// LockFlag marks a reserved-but-not-yet-occupied grid cell.
	LockFlag uint16 = 0x8000
)

func NewEntityID(index uint32, generation uint32) EntityID {
	return presentBit |
		EntityID(generation&generationMask)<<generationShift |
		EntityID(index&indexMask)
}

func (id EntityID) Index() uint32      { return uint32(id & indexMask) }
func (id EntityID) Generation() uint32 { return uint32(id>>generationShift) & generationMask }
func (id EntityID) IsZero() bool       { return id&presentBit == 0 }
func (id EntityID) Reserved() uint16   { return uint16(id >> reservedShift) }

// WithReserved returns id with its reserved bits replaced.
func (id EntityID) WithReserved(r uint16) EntityID {
	return id&(1<<reservedShift-1) | EntityID(r)<<reservedShift
}

// Locked reports whether the lock flag is set in the reserved bits.
func (id EntityID) Locked() bool { return id.Reserved()&LockFlag != 0 }

// Lock returns the locked variant of id.
func (id EntityID) Lock() EntityID { return id.WithReserved(id.Reserved() | LockFlag) }

// Unlocked strips every reserved bit, yielding the plain handle.
func (id EntityID) Unlocked() EntityID { return id.WithReserved(0) }

// Public is the numeric form sent to clients. Reserved bits never leave the
// server, which keeps the value inside the 53-bit range of a JS number.
func (id EntityID) Public() uint64 { return uint64(id.Unlocked()) }

func (id EntityID) String() string {
	if id.IsZero() {
		return "#empty"
	}
	if id.Locked() {
		return fmt.Sprintf("#%d.%d(locked)", id.Index(), id.Generation())
	}
	return fmt.Sprintf("#%d.%d", id.Index(), id.Generation())
}
