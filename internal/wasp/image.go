package wasp

import (
	"fmt"
	"os"
	"path/filepath"
)

// Image is a firmware or config image held in memory.
type Image struct {
	// Name is the file name, or a label for images not read from disk
	Name string
	// Path is the source file, empty for in-memory images
	Path string
	data []byte
}

// NewImage wraps data as an image. The bytes are copied.
func NewImage(name string, data []byte) *Image {
	return &Image{Name: name, data: append([]byte(nil), data...)}
}

// LoadImage reads an image from disk. A maxSize of zero means unbounded.
// Empty files are rejected.
func LoadImage(path string, maxSize int) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &InputError{Path: path, Reason: "cannot stat file", Err: err}
	}
	if info.IsDir() {
		return nil, &InputError{Path: path, Reason: "is a directory"}
	}
	if maxSize > 0 && info.Size() > int64(maxSize) {
		return nil, &InputError{
			Path:   path,
			Reason: fmt.Sprintf("file too big: %d bytes (max %d)", info.Size(), maxSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Reason: "cannot read file", Err: err}
	}
	if len(data) == 0 {
		return nil, &InputError{Path: path, Reason: "file is empty"}
	}

	return &Image{Name: filepath.Base(path), Path: path, data: data}, nil
}

// Bytes returns the image contents. Callers must not modify them.
func (i *Image) Bytes() []byte {
	return i.data
}

// Size returns the image length in bytes.
func (i *Image) Size() int {
	return len(i.data)
}

func (i *Image) String() string {
	return fmt.Sprintf("%s (%d bytes)", i.Name, len(i.data))
}

func (i *Image) label() string {
	if i.Path != "" {
		return i.Path
	}
	return i.Name
}
