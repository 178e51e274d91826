package core

import "sync"

// Directory is the process-wide index of every user seen by any session.
// A name, once stored, keeps its first record; users are never removed.
// Records are copies, so sessions never share a User with the directory.
type Directory struct {
	mu     sync.Mutex
	byName map[string]*User
	byID   map[int64]*User
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		byName: make(map[string]*User),
		byID:   make(map[int64]*User),
	}
}

// Add stores a copy of u unless a user with the same name is already known.
// Returns the record held by the directory for u's name.
func (d *Directory) Add(u *User) (User, bool) {
	if u == nil {
		return User{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.byName[u.Name]; ok {
		return *existing, true
	}
	stored := *u
	d.byName[u.Name] = &stored
	if _, ok := d.byID[u.ID]; !ok {
		d.byID[u.ID] = &stored
	}
	return stored, true
}

// AddAll stores every user in users.
func (d *Directory) AddAll(users []*User) {
	for _, u := range users {
		d.Add(u)
	}
}

// ByName looks a user up by nickname.
func (d *Directory) ByName(name string) (User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byName[name]; ok {
		return *u, true
	}
	return User{}, false
}

// ByID looks a user up by backend id.
func (d *Directory) ByID(id int64) (User, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.byID[id]; ok {
		return *u, true
	}
	return User{}, false
}

// Len returns the number of distinct names known.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byName)
}
