package team

import "sync"

// Directory indexes leaders by team name for the outer surfaces.
type Directory struct {
	mu     sync.RWMutex
	byName map[string]*Leader
	order  []string
}

func NewDirectory(leaders ...*Leader) *Directory {
	d := &Directory{byName: make(map[string]*Leader, len(leaders))}
	for _, l := range leaders {
		d.Add(l)
	}
	return d
}

// Add registers l, replacing any leader with the same name.
func (d *Directory) Add(l *Leader) {
	if l == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[l.Name()]; !ok {
		d.order = append(d.order, l.Name())
	}
	d.byName[l.Name()] = l
}

func (d *Directory) Get(name string) (*Leader, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.byName[name]
	return l, ok
}

// All returns leaders in the order they were added.
func (d *Directory) All() []*Leader {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Leader, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byName[name])
	}
	return out
}
