package render

import (
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"

	appLog "inkdash/internal/log"
)

// Point sizes of the dashboard faces.
const (
	titleSize   = 52
	timeSize    = 96
	dateSize    = 40
	sectionSize = 40
	eventSize   = 32
)

// Fonts holds one face per text role.
type Fonts struct {
	Title   font.Face
	Time    font.Face
	Date    font.Face
	Section font.Face
	Event   font.Face
}

// DefaultFonts uses the built-in bitmap face for every role.
func DefaultFonts() Fonts {
	f := basicfont.Face7x13
	return Fonts{Title: f, Time: f, Date: f, Section: f, Event: f}
}

// LoadFont opens a TTF/OTF file at the given point size. It never fails: a
// missing or unreadable file yields the built-in 7x13 face.
func LoadFont(path string, size float64) font.Face {
	return newLoader().face(path, size)
}

// LoadFonts builds the dashboard faces, bold for title/time/section and
// regular for date/event text.
func LoadFonts(regular, bold string) Fonts {
	l := newLoader()
	return Fonts{
		Title:   l.face(bold, titleSize),
		Time:    l.face(bold, timeSize),
		Date:    l.face(regular, dateSize),
		Section: l.face(bold, sectionSize),
		Event:   l.face(regular, eventSize),
	}
}

// loader parses each file once per LoadFonts call.
type loader struct {
	parsed map[string]*opentype.Font
}

func newLoader() *loader {
	return &loader{parsed: make(map[string]*opentype.Font)}
}

func (l *loader) face(path string, size float64) font.Face {
	f, ok := l.parsed[path]
	if !ok {
		f = l.parse(path)
		l.parsed[path] = f
	}
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		appLog.Debug("font face creation failed, using built-in face", "path", path, "size", size, "reason", err)
		return basicfont.Face7x13
	}
	return face
}

func (l *loader) parse(path string) *opentype.Font {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		appLog.Debug("font resource missing, using built-in face", "path", path, "reason", err)
		return nil
	}
	f, err := opentype.Parse(data)
	if err != nil {
		appLog.Debug("font parse failed, using built-in face", "path", path, "reason", err)
		return nil
	}
	return f
}
