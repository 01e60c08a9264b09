package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	localDateTimeLayout = "2006-01-02T15:04:05"
	localDateLayout     = "2006-01-02"
)

// Time is a server LocalDateTime ("2006-01-02T15:04:05[.fraction]"), which
// carries no zone. Values are interpreted in time.Local.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(localDateTimeLayout))
}

func (t *Time) UnmarshalJSON(b []byte) error {
	raw, ok, err := unquote(b)
	if err != nil || !ok {
		t.Time = time.Time{}
		return err
	}
	for _, layout := range []string{localDateTimeLayout + ".999999999", time.RFC3339Nano} {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("parse time %q", raw)
}

// Date is a server LocalDate ("2006-01-02").
type Date struct {
	time.Time
}

func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, 'T'); i >= 0 {
		raw = raw[:i]
	}
	parsed, err := time.ParseInLocation(localDateLayout, raw, time.Local)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return Date{Time: parsed}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(localDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	raw, ok, err := unquote(b)
	if err != nil || !ok {
		d.Time = time.Time{}
		return err
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func unquote(b []byte) (string, bool, error) {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return "", false, nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return "", false, err
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != "", nil
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

func ParseGender(raw string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(raw))); g {
	case GenderMale, GenderFemale, GenderOther:
		return g, nil
	default:
		return "", fmt.Errorf("unknown gender %q (want MALE, FEMALE or OTHER)", raw)
	}
}

type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageVoice MessageType = "VOICE"
)

type User struct {
	ID          int64        `json:"id"`
	Mobile      string       `json:"mobile,omitempty"`
	Name        string       `json:"name,omitempty"`
	Gender      Gender       `json:"gender,omitempty"`
	DOB         Date         `json:"dob"`
	Address     string       `json:"address,omitempty"`
	Pincode     string       `json:"pincode,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
	Hobbies     string       `json:"hobbies,omitempty"`
	AboutYou    string       `json:"aboutYou,omitempty"`
	ProfilePics []ProfilePic `json:"profilePics,omitempty"`
	CreatedAt   Time         `json:"createdAt"`
	UpdatedAt   Time         `json:"updatedAt"`
}

type ProfilePic struct {
	ID           int64  `json:"id"`
	ImagePath    string `json:"imagePath"`
	ImageName    string `json:"imageName,omitempty"`
	ImageType    string `json:"imageType,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	IsPrimary    bool   `json:"isPrimary"`
	DisplayOrder int    `json:"displayOrder"`
	CreatedAt    Time   `json:"createdAt"`
	UpdatedAt    Time   `json:"updatedAt"`
}

// ProfileUpdate is the editable subset of a profile sent to PUT /users/profile.
type ProfileUpdate struct {
	Name      string   `json:"name"`
	Gender    Gender   `json:"gender"`
	DOB       Date     `json:"dob"`
	Address   string   `json:"address"`
	Pincode   string   `json:"pincode"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Hobbies   string   `json:"hobbies"`
	AboutYou  string   `json:"aboutYou"`
}

// Communication is one conversation card: the other user plus the state of the
// conversation with them.
type Communication struct {
	ID                         int64        `json:"id,omitempty"`
	UserID                     int64        `json:"userId"`
	UserName                   string       `json:"userName"`
	UserMobile                 string       `json:"userMobile,omitempty"`
	UserGender                 Gender       `json:"userGender,omitempty"`
	UserAddress                string       `json:"userAddress,omitempty"`
	UserPincode                string       `json:"userPincode,omitempty"`
	UserLatitude               *float64     `json:"userLatitude,omitempty"`
	UserLongitude              *float64     `json:"userLongitude,omitempty"`
	UserHobbies                string       `json:"userHobbies,omitempty"`
	UserAboutYou               string       `json:"userAboutYou,omitempty"`
	UserProfilePics            []ProfilePic `json:"userProfilePics,omitempty"`
	UserCreatedAt              Time         `json:"userCreatedAt"`
	UserUpdatedAt              Time         `json:"userUpdatedAt"`
	OnlineStatus               string       `json:"onlineStatus"`
	LastActiveTime             Time         `json:"lastActiveTime"`
	LastActiveSource           string       `json:"lastActiveSource,omitempty"`
	CommunicationID            int64        `json:"communicationId,omitempty"`
	CanCommunicate             bool         `json:"canCommunicate"`
	CommunicationEstablishedAt Time         `json:"communicationEstablishedAt"`
	CommunicationUpdatedAt     Time         `json:"communicationUpdatedAt"`
	LastMessageID              int64        `json:"lastMessageId,omitempty"`
	LastMessageType            MessageType  `json:"lastMessageType,omitempty"`
	LastMessageContent         string       `json:"lastMessageContent,omitempty"`
	LastMessageMediaPath       string       `json:"lastMessageMediaPath,omitempty"`
	LastMessageTime            Time         `json:"lastMessageTime"`
	IsLastMessageFromMe        bool         `json:"isLastMessageFromMe"`
}

type SearchQuery struct {
	Gender        Gender   `json:"gender,omitempty"`
	Pincode       string   `json:"pincode,omitempty"`
	AgeGroup      string   `json:"ageGroup,omitempty"`
	MaxDistanceKm *float64 `json:"maxDistanceKm,omitempty"`
	UserLatitude  *float64 `json:"userLatitude,omitempty"`
	UserLongitude *float64 `json:"userLongitude,omitempty"`
}

type SearchResult struct {
	User
	OnlineStatus     string `json:"onlineStatus"`
	LastActiveTime   Time   `json:"lastActiveTime"`
	LastActiveSource string `json:"lastActiveSource,omitempty"`
}

type Message struct {
	ID          int64       `json:"id"`
	Sender      *User       `json:"sender,omitempty"`
	Receiver    *User       `json:"receiver,omitempty"`
	MessageType MessageType `json:"messageType"`
	TextContent string      `json:"textContent,omitempty"`
	MediaPath   string      `json:"mediaPath,omitempty"`
	CreatedAt   Time        `json:"createdAt"`
}

type MessageInput struct {
	ReceiverID  int64       `json:"receiverId"`
	MessageType MessageType `json:"messageType"`
	TextContent string      `json:"textContent,omitempty"`
	MediaPath   string      `json:"mediaPath,omitempty"`
}

type ActivityStatus struct {
	ID             int64  `json:"id"`
	ActiveSource   string `json:"activeSource"`
	LastActiveTime Time   `json:"lastActiveTime"`
	CreatedAt      Time   `json:"createdAt"`
}

type BlockMapping struct {
	ID          int64 `json:"id"`
	User        *User `json:"user,omitempty"`
	BlockedUser *User `json:"blockedUser,omitempty"`
	CreatedAt   Time  `json:"createdAt"`
}

type RetentionConfig struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	RetentionCount int  `json:"retentionCount" yaml:"retentionCount"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
