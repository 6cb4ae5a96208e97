package auth

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GradeLevel string `json:"grade,omitempty"`
	Role       string `json:"role"` // student|teacher|admin

	PasswordHash string `json:"password_hash,omitempty"`
	Password     string `json:"password,omitempty"` // plaintext optional (LAN-only), hashed at load
}

// Directory is the static user table.
type Directory struct {
	users map[string]User
}

func NewDirectory(users []User) (*Directory, error) {
	d := &Directory{users: make(map[string]User, len(users))}
	for _, u := range users {
		u.ID = strings.TrimSpace(u.ID)
		if u.ID == "" {
			continue
		}
		if u.Role == "" {
			u.Role = "student"
		}
		if u.Name == "" {
			u.Name = u.ID
		}
		if u.PasswordHash == "" {
			if u.Password == "" {
				return nil, fmt.Errorf("user %s: password or password_hash required", u.ID)
			}
			h, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
			u.PasswordHash = string(h)
		}
		u.Password = ""
		d.users[u.ID] = u
	}
	return d, nil
}

// DevDirectory is the offline fallback: teacher/teacher and student/student.
func DevDirectory() *Directory {
	d, _ := NewDirectory([]User{
		{ID: "teacher", Name: "Teacher", Role: "teacher", Password: "teacher"},
		{ID: "student", Name: "Student", GradeLevel: "1", Role: "student", Password: "student"},
	})
	return d
}

// LoadDirectory reads a JSON array or a CSV file with columns
// id,name,grade,role,password_hash[,password].
func LoadDirectory(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var users []User
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.NewDecoder(f).Decode(&users); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		users, err = parseUsersCSV(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return NewDirectory(users)
}

func parseUsersCSV(r io.Reader) ([]User, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(rec []string, k string) string {
		if i, ok := idx[k]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}
	var out []User
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, User{
			ID:           get(rec, "id"),
			Name:         get(rec, "name"),
			GradeLevel:   get(rec, "grade"),
			Role:         get(rec, "role"),
			PasswordHash: get(rec, "password_hash"),
			Password:     get(rec, "password"),
		})
	}
	return out, nil
}

// Authenticate returns the user when id and password match.
func (d *Directory) Authenticate(id, password string) (User, error) {
	u, ok := d.users[strings.TrimSpace(id)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (d *Directory) Lookup(id string) (User, bool) {
	u, ok := d.users[id]
	return u, ok
}

func (d *Directory) Len() int { return len(d.users) }

// HashPassword is what operators use to fill password_hash columns.
func HashPassword(pw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(h), err
}
