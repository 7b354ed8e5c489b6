package jar

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// CategoryPlanned marks ideas that are confirmed future plans. They are
// never spin candidates.
const CategoryPlanned = "PLANNED"

const (
	CostFree   = "FREE"
	CostLow    = "$"
	CostMedium = "$$"
	CostHigh   = "$$$"

	ActivityLow    = "LOW"
	ActivityMedium = "MEDIUM"
	ActivityHigh   = "HIGH"

	TimeAny     = "ANY"
	TimeDay     = "DAY"
	TimeEvening = "EVENING"

	WeatherAny   = "ANY"
	WeatherSunny = "SUNNY"
	WeatherRainy = "RAINY"
	WeatherCold  = "COLD"
)

// Group is a jar: a named collection of ideas shared by its members.
type Group struct {
	ID            uint64    `gorm:"primaryKey"`
	Name          string    `gorm:"not null"`
	ReferenceCode string    `gorm:"uniqueIndex;not null"`
	XP            int       `gorm:"not null;default:0"`
	Level         int       `gorm:"not null;default:1"`
	CreatedAt     time.Time `gorm:"not null"`
}

type Membership struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"uniqueIndex:uq_membership_user_group;not null"`
	GroupID   uint64    `gorm:"uniqueIndex:uq_membership_user_group;index;not null"`
	Role      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Idea is the selectable unit. SelectedAt != nil means a previous round
// picked it and it is out of the candidate pool.
type Idea struct {
	ID        uint64 `gorm:"primaryKey"`
	GroupID   uint64 `gorm:"index;not null"`
	CreatedBy uint64 `gorm:"index;not null"`

	Description  string `gorm:"type:text;not null"`
	Details      string `gorm:"type:text;not null;default:''"`
	Address      string
	Website      string
	GoogleRating *float64

	Duration       float64 `gorm:"not null"`
	Cost           string  `gorm:"not null"`
	ActivityLevel  string  `gorm:"not null"`
	TimeOfDay      string  `gorm:"not null"`
	Weather        string  `gorm:"not null"`
	RequiresTravel bool    `gorm:"not null"`
	Indoor         bool    `gorm:"not null"`
	Category       string  `gorm:"index;not null"`
	IsPrivate      bool    `gorm:"not null"`
	Tags           Tags

	SelectedAt   *time.Time `gorm:"index"`
	SelectedDate *time.Time

	Rating   *int
	Notes    string `gorm:"type:text;not null;default:''"`
	PhotoURL string

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Tags is a postgres text[] column; other dialects store the array literal as text.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	return pq.StringArray(t).Value()
}

func (t *Tags) Scan(src any) error {
	var a pq.StringArray
	if err := a.Scan(src); err != nil {
		return err
	}
	*t = Tags(a)
	return nil
}

func (Tags) GormDataType() string { return "text" }

func (Tags) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// CanManage reports whether userID may edit or delete an idea created by creatorID,
// given the user's role in the idea's jar.
func CanManage(creatorID, userID uint64, role string) bool {
	return creatorID == userID || role == RoleAdmin
}
