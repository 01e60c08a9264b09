// Package profile loads and edits the signed-in user's profile and pictures.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/session"
	"github.com/meetthepeople/mtp/internal/view"
)

// MaxUploadBytes is the largest picture accepted for upload.
const MaxUploadBytes = 10 * 1024 * 1024

var (
	ErrNotLoaded          = errors.New("profile not loaded")
	ErrMissingRequired    = errors.New("please fill in all required fields (Name, Gender, Date of Birth)")
	ErrNotImage           = errors.New("please select an image file")
	ErrTooLarge           = errors.New("file size must be less than 10MB")
	ErrUnknownPicture     = errors.New("unknown profile picture")
	ErrDownloadInProgress = errors.New("download already in progress")
)

// Client is the part of api.Client the editor needs.
type Client interface {
	Profile(ctx context.Context) (api.User, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (api.User, error)
	ProfilePics(ctx context.Context, userID int64) ([]api.ProfilePic, error)
	UploadProfilePic(ctx context.Context, file api.Upload, isPrimary bool) (api.ProfilePic, error)
	SetPrimaryPic(ctx context.Context, picID int64) (api.ProfilePic, error)
	DeleteProfilePic(ctx context.Context, picID int64) error
	ReorderPics(ctx context.Context, picIDs []int64) error
	DownloadPic(ctx context.Context, imagePath string, w io.Writer) (int64, error)
}

type Editor struct {
	client  Client
	session *session.Session

	loaded  bool
	profile api.User
	pics    *view.Carousel

	mu          sync.Mutex
	downloading map[int64]struct{}
}

func NewEditor(client Client, s *session.Session) *Editor {
	return &Editor{
		client:      client,
		session:     s,
		pics:        view.NewCarousel(nil),
		downloading: make(map[int64]struct{}),
	}
}

// Load fetches the profile and its pictures and refreshes the session's copy
// of the user.
func (e *Editor) Load(ctx context.Context) error {
	user, err := e.client.Profile(ctx)
	if err != nil {
		log.Printf("event=profile_load_failed err=%v", err)
		return fmt.Errorf("failed to load profile data: %w", err)
	}
	if err := e.session.SetUser(ctx, user); err != nil {
		return err
	}
	pics, err := e.client.ProfilePics(ctx, user.ID)
	if err != nil {
		log.Printf("event=profile_pics_load_failed user_id=%d err=%v", user.ID, err)
		return fmt.Errorf("failed to load profile data: %w", err)
	}
	e.profile = user
	e.pics = view.NewCarousel(pics)
	e.loaded = true
	log.Printf("event=profile_loaded user_id=%d pics=%d", user.ID, len(pics))
	return nil
}

func (e *Editor) Profile() api.User { return e.profile }

func (e *Editor) Pictures() *view.Carousel { return e.pics }

// Form holds the editable profile fields as entered.
type Form struct {
	Name      string
	Gender    string
	DOB       string
	Address   string
	Pincode   string
	Latitude  string
	Longitude string
	Hobbies   string
	AboutYou  string
}

func FormFrom(u api.User) Form {
	f := Form{
		Name:     u.Name,
		Gender:   string(u.Gender),
		DOB:      u.DOB.String(),
		Address:  u.Address,
		Pincode:  u.Pincode,
		Hobbies:  u.Hobbies,
		AboutYou: u.AboutYou,
	}
	if u.Latitude != nil {
		f.Latitude = strconv.FormatFloat(*u.Latitude, 'f', -1, 64)
	}
	if u.Longitude != nil {
		f.Longitude = strconv.FormatFloat(*u.Longitude, 'f', -1, 64)
	}
	return f
}

// Set assigns one field by its form name.
func (f *Form) Set(field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name":
		f.Name = value
	case "gender":
		f.Gender = value
	case "dob":
		f.DOB = value
	case "address":
		f.Address = value
	case "pincode":
		f.Pincode = value
	case "latitude":
		f.Latitude = value
	case "longitude":
		f.Longitude = value
	case "hobbies":
		f.Hobbies = value
	case "aboutyou", "about":
		f.AboutYou = value
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	return nil
}

// Update validates the form and converts it to the request body.
func (f Form) Update() (api.ProfileUpdate, error) {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Gender) == "" || strings.TrimSpace(f.DOB) == "" {
		return api.ProfileUpdate{}, ErrMissingRequired
	}
	gender, err := api.ParseGender(f.Gender)
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	dob, err := api.ParseDate(f.DOB)
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	lat, err := optionalFloat("latitude", f.Latitude)
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	lng, err := optionalFloat("longitude", f.Longitude)
	if err != nil {
		return api.ProfileUpdate{}, err
	}
	return api.ProfileUpdate{
		Name:      strings.TrimSpace(f.Name),
		Gender:    gender,
		DOB:       dob,
		Address:   f.Address,
		Pincode:   strings.TrimSpace(f.Pincode),
		Latitude:  lat,
		Longitude: lng,
		Hobbies:   f.Hobbies,
		AboutYou:  f.AboutYou,
	}, nil
}

func optionalFloat(name, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &v, nil
}

func (e *Editor) Save(ctx context.Context, form Form) (api.User, error) {
	update, err := form.Update()
	if err != nil {
		return api.User{}, err
	}
	user, err := e.client.UpdateProfile(ctx, update)
	if err != nil {
		log.Printf("event=profile_update_failed err=%v", err)
		return api.User{}, fmt.Errorf("failed to update profile: %s", api.ErrorMessage(err, err.Error()))
	}
	e.profile = user
	if err := e.session.SetUser(ctx, user); err != nil {
		return api.User{}, err
	}
	log.Printf("event=profile_update_completed user_id=%d", user.ID)
	return user, nil
}

// Upload sends the image at path. The first picture a user uploads becomes
// the primary one.
func (e *Editor) Upload(ctx context.Context, path string) (api.ProfilePic, error) {
	if !e.loaded {
		return api.ProfilePic{}, ErrNotLoaded
	}
	f, err := os.Open(path)
	if err != nil {
		return api.ProfilePic{}, fmt.Errorf("open picture: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return api.ProfilePic{}, fmt.Errorf("stat picture: %w", err)
	}
	if info.Size() > MaxUploadBytes {
		return api.ProfilePic{}, ErrTooLarge
	}
	contentType, err := detectContentType(f, path)
	if err != nil {
		return api.ProfilePic{}, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return api.ProfilePic{}, ErrNotImage
	}

	isPrimary := e.pics.Len() == 0
	pic, err := e.client.UploadProfilePic(ctx, api.Upload{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Body:        f,
	}, isPrimary)
	if err != nil {
		log.Printf("event=profile_pic_upload_failed file=%s err=%v", filepath.Base(path), err)
		return api.ProfilePic{}, fmt.Errorf("failed to upload profile picture: %s", api.ErrorMessage(err, err.Error()))
	}
	e.pics.Add(pic)
	log.Printf("event=profile_pic_upload_completed pic_id=%d primary=%t size=%d", pic.ID, isPrimary, info.Size())
	return pic, nil
}

// detectContentType sniffs the head of f and rewinds it. The file extension
// is used when sniffing is inconclusive.
func detectContentType(f *os.File, path string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read picture: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind picture: %w", err)
	}
	contentType := http.DetectContentType(head[:n])
	if contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
			contentType = byExt
		}
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	return contentType, nil
}

func (e *Editor) Delete(ctx context.Context, picID int64) error {
	if err := e.client.DeleteProfilePic(ctx, picID); err != nil {
		log.Printf("event=profile_pic_delete_failed pic_id=%d err=%v", picID, err)
		return fmt.Errorf("failed to delete picture: %w", err)
	}
	e.pics.Remove(picID)
	log.Printf("event=profile_pic_delete_completed pic_id=%d", picID)
	return nil
}

func (e *Editor) SetPrimary(ctx context.Context, picID int64) error {
	if _, err := e.client.SetPrimaryPic(ctx, picID); err != nil {
		log.Printf("event=profile_pic_primary_failed pic_id=%d err=%v", picID, err)
		return fmt.Errorf("failed to set primary picture: %w", err)
	}
	e.pics.SetPrimary(picID)
	log.Printf("event=profile_pic_primary_completed pic_id=%d", picID)
	return nil
}

// Reorder sets the display order of the loaded pictures to picIDs, which must
// name each of them exactly once.
func (e *Editor) Reorder(ctx context.Context, picIDs []int64) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	current := e.pics.Pics()
	if len(picIDs) != len(current) {
		return fmt.Errorf("reorder needs all %d picture ids, got %d", len(current), len(picIDs))
	}
	byID := make(map[int64]api.ProfilePic, len(current))
	for _, p := range current {
		byID[p.ID] = p
	}
	ordered := make([]api.ProfilePic, 0, len(picIDs))
	for i, id := range picIDs {
		p, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownPicture, id)
		}
		delete(byID, id)
		p.DisplayOrder = i
		ordered = append(ordered, p)
	}

	if err := e.client.ReorderPics(ctx, picIDs); err != nil {
		log.Printf("event=profile_pic_reorder_failed err=%v", err)
		return fmt.Errorf("failed to reorder pictures: %w", err)
	}
	e.pics = view.NewCarousel(ordered)
	log.Printf("event=profile_pic_reorder_completed count=%d", len(ordered))
	return nil
}

// DownloadName is the local file name for a picture.
func DownloadName(p api.ProfilePic) string {
	if name := filepath.Base(strings.TrimSpace(p.ImageName)); name != "" && name != "." && name != string(filepath.Separator) {
		return name
	}
	return fmt.Sprintf("profile-pic-%d.jpg", p.ID)
}

// Download saves the picture with picID into dir and returns the written path.
func (e *Editor) Download(ctx context.Context, picID int64, dir string) (string, int64, error) {
	pic, ok := e.find(picID)
	if !ok {
		return "", 0, fmt.Errorf("%w: %d", ErrUnknownPicture, picID)
	}

	e.mu.Lock()
	if _, busy := e.downloading[picID]; busy {
		e.mu.Unlock()
		return "", 0, ErrDownloadInProgress
	}
	e.downloading[picID] = struct{}{}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.downloading, picID)
		e.mu.Unlock()
	}()

	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	dst := filepath.Join(dir, DownloadName(pic))
	f, err := os.Create(dst)
	if err != nil {
		return "", 0, fmt.Errorf("create download file: %w", err)
	}
	n, err := e.client.DownloadPic(ctx, pic.ImagePath, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		log.Printf("event=profile_pic_download_failed pic_id=%d err=%v", picID, err)
		return "", 0, fmt.Errorf("download picture %d: %w", picID, err)
	}
	log.Printf("event=profile_pic_download_completed pic_id=%d bytes=%d", picID, n)
	return dst, n, nil
}

func (e *Editor) find(picID int64) (api.ProfilePic, bool) {
	for _, p := range e.pics.Pics() {
		if p.ID == picID {
			return p, true
		}
	}
	return api.ProfilePic{}, false
}
