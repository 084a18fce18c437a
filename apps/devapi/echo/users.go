package devapi

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/edutracks/console/core/role"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// User is an account known to the development backend.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         role.Role
	passwordHash []byte
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "generating password hash")
	}
	u.passwordHash = hash
	return nil
}

func (u User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password))
}

// Users is an in-memory account table keyed by email.
type Users struct {
	mu     sync.RWMutex
	nextID int
	byMail map[string]User
	byID   map[string]string // id -> email
}

func NewUsers() *Users {
	return &Users{byMail: make(map[string]User), byID: make(map[string]string)}
}

// Seed adds one account per role, named after the role, all sharing password.
func (us *Users) Seed(password string) error {
	for _, r := range role.All {
		name := r.String()
		if _, err := us.Create(name, strings.ToLower(name)+"@edutracks.dev", password, r); err != nil {
			return errors.Wrapf(err, "seeding %s", name)
		}
	}
	return nil
}

func (us *Users) Create(name, email, password string, r role.Role) (User, error) {
	usr := User{Name: name, Email: email, Role: r}
	if err := usr.SetPassword(password); err != nil {
		return User{}, err
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	if _, ok := us.byMail[email]; ok {
		return User{}, ErrEmailTaken
	}
	us.nextID++
	usr.ID = strconv.Itoa(us.nextID)
	us.byMail[email] = usr
	us.byID[usr.ID] = email
	return usr, nil
}

func (us *Users) GetByID(id string) (User, error) {
	us.mu.RLock()
	defer us.mu.RUnlock()
	usr, ok := us.byMail[us.byID[id]]
	if !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// ChangePassword replaces the password of the user with the given id.
func (us *Users) ChangePassword(id, password string) error {
	us.mu.Lock()
	defer us.mu.Unlock()
	usr, ok := us.byMail[us.byID[id]]
	if !ok {
		return ErrNotFound
	}
	if err := usr.SetPassword(password); err != nil {
		return err
	}
	us.byMail[usr.Email] = usr
	return nil
}

func (us *Users) GetByEmail(email string) (User, error) {
	us.mu.RLock()
	defer us.mu.RUnlock()
	usr, ok := us.byMail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// Emails lists the registered addresses in order.
func (us *Users) Emails() []string {
	us.mu.RLock()
	defer us.mu.RUnlock()
	emails := make([]string, 0, len(us.byMail))
	for email := range us.byMail {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

