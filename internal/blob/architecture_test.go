package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyFacadesImportInfra ensures the infra-backed blob and persistence
// implementations stay behind their facade packages. Everything else must
// depend on the facade interfaces instead.
func TestOnlyFacadesImportInfra(t *testing.T) {
	guarded := map[string]string{
		"remotefactory/internal/infra/blob":        "remotefactory/internal/blob",
		"remotefactory/internal/infra/persistence": "remotefactory/internal/persistence",
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "remotefactory/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		for infraPrefix, facadePrefix := range guarded {
			if underPrefix(pkg.PkgPath, facadePrefix) || underPrefix(pkg.PkgPath, infraPrefix) {
				continue
			}
			for importPath := range pkg.Imports {
				if underPrefix(importPath, infraPrefix) {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of infra package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of infra packages", len(violations))
	}
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
