package archive

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Directive is one (source, destination) copy pair extracted from a FOMOD
// ModuleConfig.xml, per spec.md §4.3.
type Directive struct {
	Source      string
	Destination string
}

// fomodNode walks the XML tree looking for any <folder> element, wherever it
// appears, matching the "any folder element anywhere in the document" rule.
type fomodNode struct {
	XMLName  xml.Name
	Source   string      `xml:"source,attr"`
	Dest     string      `xml:"destination,attr"`
	Children []fomodNode `xml:",any"`
}

// ParseFomod reads a ModuleConfig.xml and returns its ordered copy
// directives. A parse error yields an empty slice and no error, per spec.md
// §4.3 ("Parse errors yield an empty directive list; caller treats as no
// directives").
func ParseFomod(path string) []Directive {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil
	}

	var root fomodNode
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil
	}

	var directives []Directive
	collectFolders(root, &directives)
	return directives
}

func collectFolders(node fomodNode, out *[]Directive) {
	if node.XMLName.Local == "folder" && node.Source != "" {
		*out = append(*out, Directive{Source: node.Source, Destination: node.Dest})
	}
	for _, child := range node.Children {
		collectFolders(child, out)
	}
}

// ApplyDirectives copies extractedRoot/source into installRoot/destination
// for each directive, creating destination directories as needed. A missing
// source directory is reported to the warn callback, not returned as an
// error (spec.md §4.3).
func ApplyDirectives(directives []Directive, extractedRoot, installRoot string, warn func(string)) error {
	for _, d := range directives {
		src := filepath.Join(extractedRoot, filepath.FromSlash(d.Source))
		dst := installRoot
		if d.Destination != "" {
			dst = filepath.Join(installRoot, filepath.FromSlash(d.Destination))
		}

		if !dirExists(src) {
			if warn != nil {
				warn(fmt.Sprintf("FOMOD source not found: %s", src))
			}
			continue
		}

		if err := os.MkdirAll(dst, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dst, err)
		}

		if err := copyTree(src, dst); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
		}
	}
	return nil
}

// copyTree copies the contents of src into dst, preserving the relative
// directory structure.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
