package view

import (
	"fmt"

	"github.com/meetthepeople/mtp/internal/api"
)

// Carousel steps through a user's profile pictures one at a time.
type Carousel struct {
	pics  []api.ProfilePic
	index int
}

func NewCarousel(pics []api.ProfilePic) *Carousel {
	return &Carousel{pics: append([]api.ProfilePic(nil), pics...)}
}

func (c *Carousel) Len() int   { return len(c.pics) }
func (c *Carousel) Index() int { return c.index }

func (c *Carousel) Pics() []api.ProfilePic {
	return append([]api.ProfilePic(nil), c.pics...)
}

func (c *Carousel) Current() (api.ProfilePic, bool) {
	if len(c.pics) == 0 {
		return api.ProfilePic{}, false
	}
	return c.pics[c.index], true
}

// Next moves forward, wrapping from the last picture to the first.
func (c *Carousel) Next() {
	if len(c.pics) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.pics)
}

// Prev moves back, wrapping from the first picture to the last.
func (c *Carousel) Prev() {
	if len(c.pics) == 0 {
		return
	}
	c.index = (c.index - 1 + len(c.pics)) % len(c.pics)
}

// Seek jumps to the picture at i.
func (c *Carousel) Seek(i int) error {
	if i < 0 || i >= len(c.pics) {
		return fmt.Errorf("picture %d out of range (have %d)", i+1, len(c.pics))
	}
	c.index = i
	return nil
}

// Remove drops the picture with id, keeping the position on a valid picture.
func (c *Carousel) Remove(id int64) bool {
	for i, p := range c.pics {
		if p.ID != id {
			continue
		}
		c.pics = append(c.pics[:i], c.pics[i+1:]...)
		if c.index >= len(c.pics) {
			c.index = max(0, len(c.pics)-1)
		}
		return true
	}
	return false
}

// Add appends a picture, as after an upload.
func (c *Carousel) Add(p api.ProfilePic) {
	c.pics = append(c.pics, p)
}

// SetPrimary marks id as the only primary picture.
func (c *Carousel) SetPrimary(id int64) {
	for i := range c.pics {
		c.pics[i].IsPrimary = c.pics[i].ID == id
	}
}

// Position renders "2 / 5", or "" when empty.
func (c *Carousel) Position() string {
	if len(c.pics) == 0 {
		return ""
	}
	return fmt.Sprintf("%d / %d", c.index+1, len(c.pics))
}
