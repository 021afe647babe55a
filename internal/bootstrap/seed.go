// Package bootstrap は初回起動時のデータ投入を提供する。
// 投入済みかどうかはserver_stateに記録し、複数のプロセスが同時に起動しても一度だけ実行される。
package bootstrap

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed tutorial.yaml
var tutorialYAML []byte

// Document は投入するThemeとThoughtの一覧。
type Document struct {
	Themes   []ThemeSeed   `yaml:"themes"`
	Thoughts []ThoughtSeed `yaml:"thoughts"`
}

// ThemeSeed は投入するTheme。KeyはThoughtSeedから参照するための名前で、永続化されない。
type ThemeSeed struct {
	Key                   string `yaml:"key"`
	Name                  string `yaml:"name"`
	Public                bool   `yaml:"public"`
	BackgroundTopColor    string `yaml:"backgroundTopColor"`
	BackgroundBottomColor string `yaml:"backgroundBottomColor"`
	NodeOuterColor        string `yaml:"nodeOuterColor"`
	NodeInnerColor        string `yaml:"nodeInnerColor"`
	NodeTextColor         string `yaml:"nodeTextColor"`
	ConnectionOuterColor  string `yaml:"connectionOuterColor"`
	ConnectionInnerColor  string `yaml:"connectionInnerColor"`
	ConnectionTextColor   string `yaml:"connectionTextColor"`
}

// ThoughtSeed は投入するThought。
type ThoughtSeed struct {
	Name        string     `yaml:"name"`
	Theme       string     `yaml:"theme"`
	Public      bool       `yaml:"public"`
	Nodes       []NodeSeed `yaml:"nodes"`
	Connections [][2]int   `yaml:"connections"`
}

// NodeSeed は投入するNode。
type NodeSeed struct {
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Text string `yaml:"text"`
}

// Parse はYAMLを読み込み、参照の妥当性を検証する。
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}

	keys := make(map[string]bool, len(doc.Themes))
	for _, th := range doc.Themes {
		if th.Name == "" {
			return nil, fmt.Errorf("seed theme %q has no name", th.Key)
		}
		if th.Key != "" {
			if keys[th.Key] {
				return nil, fmt.Errorf("seed theme key %q is duplicated", th.Key)
			}
			keys[th.Key] = true
		}
	}

	for _, t := range doc.Thoughts {
		if t.Name == "" {
			return nil, fmt.Errorf("seed thought has no name")
		}
		if t.Theme != "" && !keys[t.Theme] {
			return nil, fmt.Errorf("seed thought %q references unknown theme %q", t.Name, t.Theme)
		}
		for i, c := range t.Connections {
			for _, idx := range c {
				if idx < 0 || idx >= len(t.Nodes) {
					return nil, fmt.Errorf("seed thought %q connection %d references node %d out of range", t.Name, i, idx)
				}
			}
		}
	}
	return &doc, nil
}

// Tutorial は組み込みのTutorialデータを返す。
func Tutorial() (*Document, error) {
	return Parse(tutorialYAML)
}
