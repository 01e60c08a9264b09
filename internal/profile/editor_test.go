package profile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/session"
)

type uploadCall struct {
	name        string
	contentType string
	body        string
	isPrimary   bool
}

type fakeClient struct {
	user     api.User
	pics     []api.ProfilePic
	update   api.ProfileUpdate
	uploads  []uploadCall
	primary  []int64
	deleted  []int64
	reorders [][]int64
	assets   map[string]string
	err      error
	nextID   int64
}

func (c *fakeClient) Profile(context.Context) (api.User, error) {
	return c.user, c.err
}

func (c *fakeClient) UpdateProfile(_ context.Context, update api.ProfileUpdate) (api.User, error) {
	if c.err != nil {
		return api.User{}, c.err
	}
	c.update = update
	u := c.user
	u.Name, u.Gender, u.DOB = update.Name, update.Gender, update.DOB
	return u, nil
}

func (c *fakeClient) ProfilePics(context.Context, int64) ([]api.ProfilePic, error) {
	return c.pics, c.err
}

func (c *fakeClient) UploadProfilePic(_ context.Context, file api.Upload, isPrimary bool) (api.ProfilePic, error) {
	if c.err != nil {
		return api.ProfilePic{}, c.err
	}
	body, _ := io.ReadAll(file.Body)
	c.uploads = append(c.uploads, uploadCall{name: file.FileName, contentType: file.ContentType, body: string(body), isPrimary: isPrimary})
	c.nextID++
	return api.ProfilePic{ID: 100 + c.nextID, ImagePath: "/uploads/" + file.FileName, IsPrimary: isPrimary}, nil
}

func (c *fakeClient) SetPrimaryPic(_ context.Context, picID int64) (api.ProfilePic, error) {
	c.primary = append(c.primary, picID)
	return api.ProfilePic{ID: picID, IsPrimary: true}, c.err
}

func (c *fakeClient) DeleteProfilePic(_ context.Context, picID int64) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, picID)
	return nil
}

func (c *fakeClient) ReorderPics(_ context.Context, picIDs []int64) error {
	if c.err != nil {
		return c.err
	}
	c.reorders = append(c.reorders, picIDs)
	return nil
}

func (c *fakeClient) DownloadPic(_ context.Context, imagePath string, w io.Writer) (int64, error) {
	body, ok := c.assets[imagePath]
	if !ok {
		return 0, &api.Error{StatusCode: 404, Message: "404 Not Found"}
	}
	n, err := io.WriteString(w, body)
	return int64(n), err
}

func newLoadedEditor(t *testing.T, client *fakeClient) (*Editor, *session.Session) {
	t.Helper()
	s := session.New(session.NewMemoryStore())
	e := NewEditor(client, s)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return e, s
}

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestLoadStoresUser(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		user: api.User{ID: 3, Name: "Asha"},
		pics: []api.ProfilePic{{ID: 1}, {ID: 2}},
	}
	e, s := newLoadedEditor(t, client)
	if e.Pictures().Len() != 2 {
		t.Fatalf("Pictures().Len() = %d, want 2", e.Pictures().Len())
	}
	u, ok, err := s.User(context.Background())
	if err != nil || !ok || u.Name != "Asha" {
		t.Fatalf("session User() = %+v, %t, %v", u, ok, err)
	}
}

func TestLoadFailure(t *testing.T) {
	t.Parallel()

	e := NewEditor(&fakeClient{err: errors.New("boom")}, session.New(session.NewMemoryStore()))
	err := e.Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed to load profile data") {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := e.Upload(context.Background(), "x.png"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Upload() before load error = %v, want ErrNotLoaded", err)
	}
}

func TestFormRoundTrip(t *testing.T) {
	t.Parallel()

	lat := 18.52
	dob, _ := api.ParseDate("1995-03-07")
	form := FormFrom(api.User{Name: "Asha", Gender: api.GenderFemale, DOB: dob, Latitude: &lat})
	if form.DOB != "1995-03-07" || form.Latitude != "18.52" || form.Longitude != "" {
		t.Fatalf("FormFrom() = %+v", form)
	}
	if err := form.Set("hobbies", "chess"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := form.Set("height", "170"); err == nil {
		t.Fatal("Set() error = nil for unknown field")
	}
	update, err := form.Update()
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if update.Gender != api.GenderFemale || update.Hobbies != "chess" || update.Latitude == nil || *update.Latitude != 18.52 || update.Longitude != nil {
		t.Fatalf("Update() = %+v", update)
	}
}

func TestFormValidation(t *testing.T) {
	t.Parallel()

	base := Form{Name: "Asha", Gender: "female", DOB: "1995-03-07"}
	tests := []struct {
		name   string
		mutate func(*Form)
		is     error
	}{
		{name: "missing name", mutate: func(f *Form) { f.Name = " " }, is: ErrMissingRequired},
		{name: "missing gender", mutate: func(f *Form) { f.Gender = "" }, is: ErrMissingRequired},
		{name: "missing dob", mutate: func(f *Form) { f.DOB = "" }, is: ErrMissingRequired},
		{name: "bad gender", mutate: func(f *Form) { f.Gender = "robot" }},
		{name: "bad dob", mutate: func(f *Form) { f.DOB = "07/03/1995" }},
		{name: "bad latitude", mutate: func(f *Form) { f.Latitude = "north" }},
	}
	for _, tc := range tests {
		f := base
		tc.mutate(&f)
		_, err := f.Update()
		if err == nil {
			t.Fatalf("%s: Update() error = nil", tc.name)
		}
		if tc.is != nil && !errors.Is(err, tc.is) {
			t.Fatalf("%s: Update() error = %v, want %v", tc.name, err, tc.is)
		}
	}
}

func TestSave(t *testing.T) {
	t.Parallel()

	client := &fakeClient{user: api.User{ID: 3, Name: "Old"}}
	e, s := newLoadedEditor(t, client)

	if _, err := e.Save(context.Background(), Form{Name: "New"}); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("Save() error = %v, want ErrMissingRequired", err)
	}
	user, err := e.Save(context.Background(), Form{Name: "New", Gender: "MALE", DOB: "1990-01-02"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if user.Name != "New" || client.update.Gender != api.GenderMale {
		t.Fatalf("Save() user = %+v update = %+v", user, client.update)
	}
	if u, _, _ := s.User(context.Background()); u.Name != "New" {
		t.Fatalf("session user = %+v", u)
	}

	client.err = &api.Error{StatusCode: 400, Message: "Invalid pincode"}
	_, err = e.Save(context.Background(), Form{Name: "New", Gender: "MALE", DOB: "1990-01-02"})
	if err == nil || err.Error() != "failed to update profile: Invalid pincode" {
		t.Fatalf("Save() error = %v", err)
	}
}

func TestUpload(t *testing.T) {
	t.Parallel()

	client := &fakeClient{user: api.User{ID: 3}}
	e, _ := newLoadedEditor(t, client)

	first := writeFile(t, "first.png", pngHeader)
	pic, err := e.Upload(context.Background(), first)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !pic.IsPrimary || len(client.uploads) != 1 {
		t.Fatalf("first upload = %+v, calls = %+v", pic, client.uploads)
	}
	call := client.uploads[0]
	if call.name != "first.png" || call.contentType != "image/png" || call.body != string(pngHeader) {
		t.Fatalf("upload call = %+v", call)
	}

	second := writeFile(t, "second.png", pngHeader)
	if _, err := e.Upload(context.Background(), second); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if client.uploads[1].isPrimary {
		t.Fatal("second upload marked primary")
	}
	if e.Pictures().Len() != 2 {
		t.Fatalf("Pictures().Len() = %d, want 2", e.Pictures().Len())
	}
}

func TestUploadRejects(t *testing.T) {
	t.Parallel()

	client := &fakeClient{user: api.User{ID: 3}}
	e, _ := newLoadedEditor(t, client)

	text := writeFile(t, "notes.png", []byte("just some notes"))
	if _, err := e.Upload(context.Background(), text); !errors.Is(err, ErrNotImage) {
		t.Fatalf("Upload(text) error = %v, want ErrNotImage", err)
	}

	big := filepath.Join(t.TempDir(), "big.png")
	f, err := os.Create(big)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.Write(pngHeader); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := f.Truncate(MaxUploadBytes + 1); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	_ = f.Close()
	if _, err := e.Upload(context.Background(), big); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Upload(big) error = %v, want ErrTooLarge", err)
	}

	if len(client.uploads) != 0 {
		t.Fatalf("rejected files were uploaded: %+v", client.uploads)
	}
}

func TestPictureActions(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		user: api.User{ID: 3},
		pics: []api.ProfilePic{{ID: 1, IsPrimary: true}, {ID: 2}, {ID: 3}},
	}
	e, _ := newLoadedEditor(t, client)
	ctx := context.Background()

	if err := e.SetPrimary(ctx, 2); err != nil {
		t.Fatalf("SetPrimary() error = %v", err)
	}
	for _, p := range e.Pictures().Pics() {
		if p.IsPrimary != (p.ID == 2) {
			t.Fatalf("picture %d primary = %t", p.ID, p.IsPrimary)
		}
	}

	if err := e.Reorder(ctx, []int64{3, 1}); err == nil {
		t.Fatal("Reorder() error = nil for partial list")
	}
	if err := e.Reorder(ctx, []int64{3, 1, 9}); !errors.Is(err, ErrUnknownPicture) {
		t.Fatalf("Reorder() error = %v, want ErrUnknownPicture", err)
	}
	if err := e.Reorder(ctx, []int64{3, 1, 2}); err != nil {
		t.Fatalf("Reorder() error = %v", err)
	}
	got := e.Pictures().Pics()
	if got[0].ID != 3 || got[2].ID != 2 || got[2].DisplayOrder != 2 {
		t.Fatalf("after Reorder pics = %+v", got)
	}

	if err := e.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if e.Pictures().Len() != 2 || len(client.deleted) != 1 {
		t.Fatalf("after Delete len = %d deleted = %v", e.Pictures().Len(), client.deleted)
	}

	client.err = errors.New("boom")
	if err := e.Delete(ctx, 2); err == nil {
		t.Fatal("Delete() error = nil on failure")
	}
	if e.Pictures().Len() != 2 {
		t.Fatal("failed Delete removed the local picture")
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		user: api.User{ID: 3},
		pics: []api.ProfilePic{
			{ID: 1, ImagePath: "/uploads/a.jpg", ImageName: "holiday.jpg"},
			{ID: 2, ImagePath: "/uploads/b.jpg"},
			{ID: 3, ImagePath: "/uploads/missing.jpg"},
		},
		assets: map[string]string{"/uploads/a.jpg": "AAA", "/uploads/b.jpg": "BB"},
	}
	e, _ := newLoadedEditor(t, client)
	dir := t.TempDir()
	ctx := context.Background()

	path, n, err := e.Download(ctx, 1, dir)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Base(path) != "holiday.jpg" || n != 3 {
		t.Fatalf("Download() = %s, %d", path, n)
	}

	path, _, err = e.Download(ctx, 2, dir)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if filepath.Base(path) != "profile-pic-2.jpg" {
		t.Fatalf("Download() path = %s", path)
	}
	body, _ := os.ReadFile(path)
	if string(body) != "BB" {
		t.Fatalf("downloaded body = %q", body)
	}

	if _, _, err := e.Download(ctx, 3, dir); err == nil {
		t.Fatal("Download() error = nil for missing asset")
	}
	if _, err := os.Stat(filepath.Join(dir, "profile-pic-3.jpg")); !os.IsNotExist(err) {
		t.Fatalf("partial download left behind: %v", err)
	}
	if _, _, err := e.Download(ctx, 42, dir); !errors.Is(err, ErrUnknownPicture) {
		t.Fatalf("Download() error = %v, want ErrUnknownPicture", err)
	}
}

func TestDownloadName(t *testing.T) {
	t.Parallel()

	if got := DownloadName(api.ProfilePic{ID: 5, ImageName: "../../etc/passwd"}); got != "passwd" {
		t.Fatalf("DownloadName() = %q", got)
	}
	if got := DownloadName(api.ProfilePic{ID: 5}); got != "profile-pic-5.jpg" {
		t.Fatalf("DownloadName() = %q", got)
	}
}
