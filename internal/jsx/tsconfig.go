package jsx

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ParsePathAliases reads tsconfig.json and extracts path alias mappings.
// For example, "@/*": ["./src/*"] maps prefix "@/" to replacement "src/".
func ParsePathAliases(rootPath string) map[string]string {
	aliases := make(map[string]string)

	data, err := os.ReadFile(filepath.Join(rootPath, "tsconfig.json"))
	if err != nil {
		return aliases
	}

	var config struct {
		CompilerOptions struct {
			Paths map[string][]string `json:"paths"`
		} `json:"compilerOptions"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return aliases
	}

	for pattern, targets := range config.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		// Pattern like "@/*" → prefix "@/"
		// Target like "./src/*" → replacement "src/"
		if strings.HasSuffix(pattern, "*") && strings.HasSuffix(targets[0], "*") {
			prefix := strings.TrimSuffix(pattern, "*")
			replacement := strings.TrimSuffix(targets[0], "*")
			replacement = strings.TrimPrefix(replacement, "./")
			aliases[prefix] = replacement
		}
	}

	return aliases
}
