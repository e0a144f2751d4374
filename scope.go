package vkgrt

import (
	"github.com/celer/vkgrt/driver"
)

// releaser owns a list of device objects and destroys them in reverse
// order of registration. Release may be called any number of times; each
// object is destroyed once.
type releaser struct {
	toDestroy []driver.Destroyer
}

// manage registers d and returns it, so construction and ownership read
// as one step.
func (r *releaser) manage(d driver.Destroyer) driver.Destroyer {
	r.toDestroy = append(r.toDestroy, d)
	return d
}

// Release destroys everything registered so far, newest first.
func (r *releaser) Release() {
	for i := len(r.toDestroy) - 1; i >= 0; i-- {
		d := r.toDestroy[i]
		r.toDestroy = r.toDestroy[:i]
		d.Destroy()
	}
}

// Len returns the number of objects still owned.
func (r *releaser) Len() int { return len(r.toDestroy) }
