package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Catalogs are immutable after Load and safe for concurrent reads.
type Catalogs struct {
	Items       ItemCatalog
	Recipes     RecipeCatalog
	EntityTypes EntityTypeCatalog
}

// Source is a bitset of environmental capabilities near a player.
type Source uint8

const (
	SourceFire Source = 1 << iota
	SourceWater
	SourceWorkbench
)

func (s Source) Has(flag Source) bool { return s&flag == flag }

type ItemCatalog struct {
	ByID   map[int]Item
	Digest string
}

type Item struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slot      string `json:"slot,omitempty"` // "", "hand", "head"
	MaxStack  int    `json:"max_stack,omitempty"`
	Structure int    `json:"structure,omitempty"` // entity type id placed by this item; 0 = not placeable
}

const DefaultMaxStack = 255

func (it Item) StackLimit() int {
	if it.MaxStack <= 0 {
		return DefaultMaxStack
	}
	return it.MaxStack
}

func (it Item) Equippable() bool { return it.Slot == "hand" || it.Slot == "head" }

type RecipeCatalog struct {
	ByID   map[int]Recipe
	Digest string
}

type Recipe struct {
	ID          int          `json:"id"`
	Name        string       `json:"name,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Result      int          `json:"result"`
	Time        float64      `json:"time"`
	Fire        bool         `json:"fire,omitempty"`
	Water       bool         `json:"water,omitempty"`
	Workbench   bool         `json:"workbench,omitempty"`
}

// Requires returns the source flags a player needs to start this recipe.
func (r Recipe) Requires() Source {
	var s Source
	if r.Fire {
		s |= SourceFire
	}
	if r.Water {
		s |= SourceWater
	}
	if r.Workbench {
		s |= SourceWorkbench
	}
	return s
}

// Ingredient is encoded as a two element array: [item id, amount].
type Ingredient struct {
	Item   int
	Amount int
}

func (in *Ingredient) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	in.Item, in.Amount = pair[0], pair[1]
	return nil
}

func (in Ingredient) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{in.Item, in.Amount})
}

type EntityKind string

const (
	KindPlayer    EntityKind = "player"
	KindStructure EntityKind = "structure"
	KindChest     EntityKind = "chest"
)

type EntityTypeCatalog struct {
	ByID   map[int]EntityType
	Digest string
}

type EntityType struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Kind         EntityKind `json:"kind"`
	Source       Source     `json:"source,omitempty"`
	SourceRadius float64    `json:"source_radius,omitempty"`
	Limit        int        `json:"limit,omitempty"` // max live instances per owner; 0 = unlimited
}

func (c *Catalogs) Item(id int) (Item, bool) {
	it, ok := c.Items.ByID[id]
	return it, ok
}

func (c *Catalogs) Recipe(id int) (Recipe, bool) {
	r, ok := c.Recipes.ByID[id]
	return r, ok
}

func (c *Catalogs) EntityType(id int) (EntityType, bool) {
	t, ok := c.EntityTypes.ByID[id]
	return t, ok
}

// SourceTypes lists entity types that provide at least one source flag, sorted by id.
func (c *Catalogs) SourceTypes() []EntityType {
	out := make([]EntityType, 0, 4)
	for _, t := range c.EntityTypes.ByID {
		if t.Source != 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func Load(configDir string) (*Catalogs, error) {
	var (
		items   []Item
		recipes []Recipe
		types   []EntityType
		c       Catalogs
		err     error
	)
	if c.Items.Digest, err = loadFile(filepath.Join(configDir, "items.json"), "items.schema.json", &items); err != nil {
		return nil, err
	}
	if c.Recipes.Digest, err = loadFile(filepath.Join(configDir, "recipes.json"), "recipes.schema.json", &recipes); err != nil {
		return nil, err
	}
	if c.EntityTypes.Digest, err = loadFile(filepath.Join(configDir, "entity_types.json"), "entity_types.schema.json", &types); err != nil {
		return nil, err
	}
	built, err := New(items, recipes, types)
	if err != nil {
		return nil, err
	}
	built.Items.Digest = c.Items.Digest
	built.Recipes.Digest = c.Recipes.Digest
	built.EntityTypes.Digest = c.EntityTypes.Digest
	return built, nil
}

// New indexes in-memory definitions and checks cross references between them.
func New(items []Item, recipes []Recipe, types []EntityType) (*Catalogs, error) {
	c := &Catalogs{
		Items:       ItemCatalog{ByID: make(map[int]Item, len(items))},
		Recipes:     RecipeCatalog{ByID: make(map[int]Recipe, len(recipes))},
		EntityTypes: EntityTypeCatalog{ByID: make(map[int]EntityType, len(types))},
	}
	for _, t := range types {
		if _, dup := c.EntityTypes.ByID[t.ID]; dup {
			return nil, fmt.Errorf("entity_types.json: duplicate id %d", t.ID)
		}
		c.EntityTypes.ByID[t.ID] = t
	}
	for _, it := range items {
		if _, dup := c.Items.ByID[it.ID]; dup {
			return nil, fmt.Errorf("items.json: duplicate id %d", it.ID)
		}
		if it.Structure != 0 {
			t, ok := c.EntityTypes.ByID[it.Structure]
			if !ok {
				return nil, fmt.Errorf("items.json: item %d places unknown entity type %d", it.ID, it.Structure)
			}
			if t.Kind == KindPlayer {
				return nil, fmt.Errorf("items.json: item %d places a player type", it.ID)
			}
		}
		c.Items.ByID[it.ID] = it
	}
	for _, r := range recipes {
		if _, dup := c.Recipes.ByID[r.ID]; dup {
			return nil, fmt.Errorf("recipes.json: duplicate id %d", r.ID)
		}
		if r.Time <= 0 {
			return nil, fmt.Errorf("recipes.json: recipe %d: time must be > 0", r.ID)
		}
		if _, ok := c.Items.ByID[r.Result]; !ok {
			return nil, fmt.Errorf("recipes.json: recipe %d: unknown result item %d", r.ID, r.Result)
		}
		if len(r.Ingredients) == 0 {
			return nil, fmt.Errorf("recipes.json: recipe %d: no ingredients", r.ID)
		}
		for _, in := range r.Ingredients {
			if _, ok := c.Items.ByID[in.Item]; !ok {
				return nil, fmt.Errorf("recipes.json: recipe %d: unknown ingredient %d", r.ID, in.Item)
			}
			if in.Amount <= 0 {
				return nil, fmt.Errorf("recipes.json: recipe %d: ingredient %d amount must be > 0", r.ID, in.Item)
			}
		}
		c.Recipes.ByID[r.ID] = r
	}
	return c, nil
}

func loadFile(path, schemaName string, out any) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	if err := validate(schemaName, raw); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return sha256Hex(raw), nil
}

func validate(schemaName string, raw []byte) error {
	src, err := schemaFS.ReadFile("schemas/" + schemaName)
	if err != nil {
		return err
	}
	s, err := jsonschema.CompileString(schemaName, string(src))
	if err != nil {
		return fmt.Errorf("compile %s: %w", schemaName, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
