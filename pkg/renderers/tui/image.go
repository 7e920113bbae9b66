package tui

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/goliatone/go-sections/pkg/form"
)

// Image widget menu labels.
const (
	LabelImageURL    = "Enter URL"
	LabelChooseImage = "Choose image"
	LabelRemoveImage = "Remove image"
)

// ErrNoImages is returned by FilePicker when the library holds no images.
var ErrNoImages = errors.New("tui: no images found")

// ImagePicker supplies image URLs from outside the editor, such as a media
// library. current is the URL the field holds now.
type ImagePicker interface {
	PickImage(ctx context.Context, driver PromptDriver, current string) (string, error)
}

// FilePicker offers the image files of a directory tree. The chosen file
// is returned as URLPrefix joined with its slash separated path.
type FilePicker struct {
	Files     fs.FS
	URLPrefix string
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".svg": true, ".avif": true,
}

// Images lists the image paths of the tree in lexical order.
func (p FilePicker) Images() ([]string, error) {
	if p.Files == nil {
		return nil, ErrNoImages
	}
	var out []string
	err := fs.WalkDir(p.Files, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name != "." && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if imageExtensions[strings.ToLower(path.Ext(name))] {
			out = append(out, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// URL maps a library path to the stored value.
func (p FilePicker) URL(name string) string {
	prefix := strings.TrimSuffix(p.URLPrefix, "/")
	if prefix == "" {
		return "/" + name
	}
	return prefix + "/" + name
}

func (p FilePicker) PickImage(ctx context.Context, driver PromptDriver, current string) (string, error) {
	images, err := p.Images()
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", ErrNoImages
	}
	selected := 0
	for i, name := range images {
		if p.URL(name) == current {
			selected = i
		}
	}
	idx, err := driver.Select(ctx, SelectConfig{Message: "Image", Options: images, DefaultIndex: selected, Filterable: true, PageSize: 12})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(images) {
		return "", ErrAborted
	}
	return p.URL(images[idx]), nil
}

// promptImage offers the ways to change an image field: typing a URL, the
// configured picker and clearing the value.
func (e *Editor) promptImage(ctx context.Context, message, current, help string, picker, clearable bool) (any, bool, error) {
	options := []string{LabelImageURL}
	if picker && e.images != nil {
		options = append(options, LabelChooseImage)
	}
	if clearable {
		options = append(options, LabelRemoveImage)
	}
	if len(options) > 1 {
		options = append(options, LabelBack)
	}

	choice := LabelImageURL
	if len(options) > 1 {
		idx, err := e.driver.Select(ctx, SelectConfig{Message: message, Options: options, Help: help})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(options) {
			return nil, false, nil
		}
		choice = options[idx]
	}

	switch choice {
	case LabelChooseImage:
		url, err := e.images.PickImage(ctx, e.driver, current)
		if errors.Is(err, ErrNoImages) {
			return nil, false, e.driver.Info(ctx, e.theme.prefix(form.MessageWarning)+" "+err.Error())
		}
		return url, err == nil, err
	case LabelRemoveImage:
		return "", true, nil
	case LabelBack:
		return nil, false, nil
	default:
		value, err := e.driver.Input(ctx, InputConfig{Message: message, Default: current, Help: help})
		return value, err == nil, err
	}
}
