package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ProjectFile is the optional per-project settings file name.
const ProjectFile = "cozy-build.yaml"

// Project holds the settings that describe the application layout rather than
// the build flavour.
type Project struct {
	SrcDir         string   `yaml:"src"`
	NodeModulesDir string   `yaml:"nodeModules"`
	OutputDir      string   `yaml:"output"`
	Entries        []string `yaml:"entries"`
	ScriptTarget   string   `yaml:"target"`
	StyleEngines   []string `yaml:"engines"`
	HTMLTemplate   string   `yaml:"htmlTemplate"`
	Precompress    bool     `yaml:"precompress"`
}

// DefaultProject returns the conventional layout.
func DefaultProject() Project {
	return Project{
		SrcDir:         "src",
		NodeModulesDir: "node_modules",
		OutputDir:      "build",
		Entries:        []string{"src/main.js"},
	}
}

// LoadProject reads path over the defaults. A missing file yields the defaults.
func LoadProject(path string) (Project, error) {
	project := DefaultProject()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return project, nil
		}
		return Project{}, fmt.Errorf("failed to read project file: %w", err)
	}

	if err := yaml.Unmarshal(data, &project); err != nil {
		return Project{}, fmt.Errorf("failed to parse project file %s: %w", path, err)
	}

	return project, nil
}
