// Where: internal/render/renderer.go
// What: Render generated artifacts from the variant matrix.
// Why: Keep the bake definition and the variant README outputs of one table.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/buildfleet/imx/internal/matrix"
	"github.com/buildfleet/imx/internal/meta"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateCache sync.Map

// Outputs holds every rendered artifact keyed by file name.
type Outputs struct {
	Bake   []byte
	Readme []byte
}

// Render produces all artifacts for the matrix.
func Render(m matrix.Matrix, tag string, pins map[string]string) (Outputs, error) {
	bake, err := MarshalBakeFile(BuildBakeFile(m, tag, pins))
	if err != nil {
		return Outputs{}, err
	}
	readme, err := RenderReadme(m)
	if err != nil {
		return Outputs{}, err
	}
	return Outputs{Bake: bake, Readme: []byte(readme)}, nil
}

// Write stores the artifacts under dir, creating it as needed.
func (o Outputs) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, meta.BakeFile), o.Bake, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, meta.ReadmeFile), o.Readme, 0o644)
}

// RenderReadme regenerates the variant documentation table.
func RenderReadme(m matrix.Matrix) (string, error) {
	data := readmeTemplateData{
		PrimaryPackage: m.PrimaryPackage,
		MatrixFile:     meta.MatrixFile,
		Variants:       m.Variants,
		Pairs:          readmePairs(m),
	}
	return renderTemplate("readme.md.tmpl", data)
}

type readmeTemplateData struct {
	PrimaryPackage string
	MatrixFile     string
	Variants       []matrix.Variant
	Pairs          []readmePair
}

type readmePair struct {
	Left  string
	Right string
}

// readmePairs lists declared pairings once each, deterministically ordered.
func readmePairs(m matrix.Matrix) []readmePair {
	seen := map[string]bool{}
	var pairs []readmePair
	for _, variant := range m.Variants {
		target := strings.TrimSpace(variant.Pair)
		if target == "" {
			continue
		}
		left, right := variant.Name, target
		if left > right {
			left, right = right, left
		}
		key := left + "\x00" + right
		if seen[key] {
			continue
		}
		seen[key] = true
		pairs = append(pairs, readmePair{Left: left, Right: right})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Left < pairs[j].Left })
	return pairs
}

func renderTemplate(name string, data any) (string, error) {
	tmpl, err := loadTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func loadTemplate(name string) (*template.Template, error) {
	if value, ok := templateCache.Load(name); ok {
		cached, ok := value.(*template.Template)
		if !ok {
			return nil, fmt.Errorf("template cache type mismatch for %s", name)
		}
		return cached, nil
	}
	pathName := "templates/" + name
	tmpl, err := template.New(path.Base(pathName)).Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, pathName)
	if err != nil {
		return nil, err
	}
	templateCache.Store(name, tmpl)
	return tmpl, nil
}
