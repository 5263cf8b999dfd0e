package dungeon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlLevelFile is the top-level YAML structure for level files.
type yamlLevelFile struct {
	Level yamlLevel `yaml:"level"`
}

// yamlLevel is the YAML representation of a level map.
type yamlLevel struct {
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Rooms     []yamlRoom     `yaml:"rooms"`
	Corridors []yamlCorridor `yaml:"corridors"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string   `yaml:"id"`
	X           int      `yaml:"x"`
	Y           int      `yaml:"y"`
	Width       int      `yaml:"width"`
	Height      int      `yaml:"height"`
	Category    string   `yaml:"category"`
	Items       []string `yaml:"items"`
	Enemies     []string `yaml:"enemies"`
	Connections []string `yaml:"connections"`
}

// yamlCorridor is the YAML representation of a corridor.
type yamlCorridor struct {
	ID   string     `yaml:"id"`
	From string     `yaml:"from"`
	To   string     `yaml:"to"`
	Path []yamlCell `yaml:"path"`
}

// yamlCell is a single path coordinate.
type yamlCell struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// LoadMapFromFile reads and validates a single level YAML file.
//
// Precondition: path must point to a valid YAML level file.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level file %s: %w", path, err)
	}
	m, err := LoadMapFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return m, nil
}

// LoadMapFromBytes parses and validates a level map from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the level schema.
// Postcondition: Returns a validated Map or a non-nil error.
func LoadMapFromBytes(data []byte) (*Map, error) {
	var file yamlLevelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing level YAML: %w", err)
	}

	m := convertYAMLLevel(file.Level)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating level: %w", err)
	}
	return m, nil
}

// LoadMapsFromDir loads all *.yaml files in dir as level maps.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all validated maps or the first error
// encountered; on error, the partial result is discarded.
func LoadMapsFromDir(dir string) ([]*Map, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading level directory %s: %w", dir, err)
	}

	var maps []*Map
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		m, err := LoadMapFromFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, nil
}

func convertYAMLLevel(y yamlLevel) *Map {
	m := &Map{Width: y.Width, Height: y.Height}
	for _, yr := range y.Rooms {
		m.Rooms = append(m.Rooms, &Room{
			ID:            yr.ID,
			Position:      Coordinate{X: yr.X, Y: yr.Y},
			Width:         yr.Width,
			Height:        yr.Height,
			Category:      RoomCategory(yr.Category),
			ItemIDs:       yr.Items,
			EnemyIDs:      yr.Enemies,
			ConnectionIDs: yr.Connections,
		})
	}
	for _, yc := range y.Corridors {
		cor := &Corridor{ID: yc.ID, FromRoom: yc.From, ToRoom: yc.To}
		for _, cell := range yc.Path {
			cor.Path = append(cor.Path, Coordinate{X: cell.X, Y: cell.Y})
		}
		m.Corridors = append(m.Corridors, cor)
	}
	return m
}
