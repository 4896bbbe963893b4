package directory

import (
	"slices"
	"strings"
	"sync"

	"github.com/matheus3301/rolechat/internal/bus"
	"github.com/matheus3301/rolechat/internal/role"
)

// User is a known participant. Users are never removed.
type User struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   role.Role `json:"role"`
	Online bool      `json:"online"`
}

// UserData is the caller-supplied part of a new user.
type UserData struct {
	Name  string
	Email string
	Role  role.Role
}

// Presence is the payload of user.presence events.
type Presence struct {
	UserID int64
	Online bool
}

// Directory tracks users and their online flags, independently of messages.
type Directory struct {
	mu      sync.RWMutex
	users   []User
	lastID  int64
	version uint64
	bus     *bus.Bus
}

// New creates an empty directory. b may be nil.
func New(b *bus.Bus) *Directory {
	return &Directory{bus: b}
}

// Add registers a user with a fresh id. New users start online.
func (d *Directory) Add(data UserData) User {
	u, _ := d.add(data, false)
	return u
}

// AddUnique registers a user unless one with the same email (ignoring case)
// exists, in which case that user is returned with ok false. The check and
// the insert happen under one lock.
func (d *Directory) AddUnique(data UserData) (u User, ok bool) {
	return d.add(data, true)
}

func (d *Directory) add(data UserData, unique bool) (User, bool) {
	d.mu.Lock()
	if unique {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, data.Email) {
				d.mu.Unlock()
				return existing, false
			}
		}
	}
	d.lastID++
	u := User{
		ID:     d.lastID,
		Name:   data.Name,
		Email:  data.Email,
		Role:   data.Role,
		Online: true,
	}
	d.users = append(d.users, u)
	d.version++
	d.mu.Unlock()

	d.bus.Emit(bus.UserAdded, u)
	return u, true
}

// SetOnline updates the presence flag of id. Unknown ids are ignored.
func (d *Directory) SetOnline(id int64, online bool) {
	d.mu.Lock()
	i := d.indexOf(id)
	if i < 0 || d.users[i].Online == online {
		d.mu.Unlock()
		return
	}
	d.users[i].Online = online
	d.version++
	d.mu.Unlock()

	d.bus.Emit(bus.UserPresence, Presence{UserID: id, Online: online})
}

// Get returns the user with the given id.
func (d *Directory) Get(id int64) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexOf(id)
	if i < 0 {
		return User{}, false
	}
	return d.users[i], true
}

// Find returns the first user, in registration order, matching pred.
func (d *Directory) Find(pred func(User) bool) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if pred(u) {
			return u, true
		}
	}
	return User{}, false
}

// FindByEmail looks a user up by email, ignoring case.
func (d *Directory) FindByEmail(email string) (User, bool) {
	return d.Find(func(u User) bool { return strings.EqualFold(u.Email, email) })
}

// List returns all users in registration order.
func (d *Directory) List() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.users)
}

// Version increases on every mutation.
func (d *Directory) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Replace swaps the directory contents, typically on startup.
func (d *Directory) Replace(users []User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = slices.Clone(users)
	d.lastID = 0
	for _, u := range users {
		d.lastID = max(d.lastID, u.ID)
	}
	d.version++
}

func (d *Directory) indexOf(id int64) int {
	return slices.IndexFunc(d.users, func(u User) bool { return u.ID == id })
}

// Seed returns the demo users. Message seeds refer to these ids.
func Seed() []User {
	return []User{
		{ID: 1, Name: "Admin User", Email: "admin@demo.com", Role: role.Admin, Online: true},
		{ID: 2, Name: "Staff Member", Email: "staff@demo.com", Role: role.Staff, Online: true},
		{ID: 3, Name: "Agent User", Email: "agent@demo.com", Role: role.Agent, Online: true},
	}
}
