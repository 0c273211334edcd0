/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package capability

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"sigs.k8s.io/yaml"
)

//go:embed tables/*.yaml
var builtinTables embed.FS

// Parse decodes a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, ErrBadCatalog{What: err.Error()}
	}
	return c, nil
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capability table: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Builtin returns the tables compiled into the binary, in file name order
func Builtin() (*Catalog, error) {
	names, err := fs.Glob(builtinTables, "tables/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := &Catalog{}
	for _, name := range names {
		data, err := builtinTables.ReadFile(name)
		if err != nil {
			return nil, err
		}
		c, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = out.Merge(c)
	}
	return out, nil
}

// Load builds a resolver from the builtin tables, with the user table at
// path (if any) taking precedence
func Load(path string) (*Resolver, error) {
	c, err := Builtin()
	if err != nil {
		return nil, err
	}
	if path != "" {
		user, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		c = user.Merge(c)
	}
	return NewResolver(c)
}

// Marshal encodes a catalog as YAML
func Marshal(c *Catalog) ([]byte, error) {
	return yaml.Marshal(c)
}
