package model

import (
	"fmt"
	"os"
	"path/filepath"
)

// Image is an upload payload held in memory so it can be resent or hashed.
type Image struct {
	Filename string
	Data     []byte
}

// ReadImage loads an image file from disk.
func ReadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("read image %s: file is empty", path)
	}
	return Image{Filename: filepath.Base(path), Data: data}, nil
}

// ReadImages loads every path in order, stopping at the first failure.
func ReadImages(paths []string) ([]Image, error) {
	images := make([]Image, 0, len(paths))
	for _, p := range paths {
		img, err := ReadImage(p)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}
