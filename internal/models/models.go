package models

import "time"

type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"

	// legacyMember is how member accounts were stored before roles were renamed.
	legacyMember Role = "uye"
)

// ParseRole accepts the known role names, including the legacy member alias.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleMember, legacyMember:
		return RoleMember, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Normalize maps legacy role values onto their current names.
func (r Role) Normalize() Role {
	if r == legacyMember {
		return RoleMember
	}
	return r
}

// Account is one entry of the users document, keyed by username.
type Account struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password"`
	Role         Role   `json:"role"`
}

type User struct {
	Username string
	Email    string
	Role     Role
}

// Date formats used in the persisted documents.
const (
	TopicDateLayout = "02.01.06"
	LogTimeLayout   = "2006-01-02 15:04:05"
)

type Topic struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	VisitCount int    `json:"visit_count"`
}

type LogEntry struct {
	IP       string `json:"ip"`
	Endpoint string `json:"endpoint"`
	Time     string `json:"time"`
}

type Session struct {
	ID        string
	Username  string
	Role      Role
	ExpiresAt time.Time
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// OfficialPage is an entry of the static "official topics" catalogue.
type OfficialPage struct {
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Role     string `yaml:"role,omitempty"`
	Date     string `yaml:"date"`
	Link     string `yaml:"link"`
	Template string `yaml:"template"` // body served at /<Link>
}
