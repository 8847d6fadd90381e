package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Name            string `yaml:"name"`
	IP              string `yaml:"ip"`
	Port            int    `yaml:"port"`
	Addr            string `yaml:"addr"`
	MaxPlayers      int    `yaml:"max_players"`
	ProtocolVersion string `yaml:"protocol_version"`
	Seed            int64  `yaml:"seed"`

	Spawn Point `yaml:"spawn"`

	AttackIntervalMs int     `yaml:"attack_interval_ms"`
	CraftUnitMs      int     `yaml:"craft_unit_ms"`
	TickRateHz       int     `yaml:"tick_rate_hz"`
	DayLengthMs      int     `yaml:"day_length_ms"`
	InventorySlots   int     `yaml:"inventory_slots"`
	PlaceDistance    float64 `yaml:"place_distance"`
	NicknameMaxLen   int     `yaml:"nickname_max_len"`

	StarterItems []StarterItem `yaml:"starter_items"`

	CleanCloseCodes []int `yaml:"clean_close_codes"`

	JournalDir   string `yaml:"journal_dir"`
	IndexDB      string `yaml:"index_db"`
	DisableIndex bool   `yaml:"disable_index"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// StarterItem is granted on join in list order.
type StarterItem struct {
	Item   int  `yaml:"item"`
	Amount int  `yaml:"amount"`
	Equip  bool `yaml:"equip"`
}

func Defaults() Config {
	return Config{
		Name:             "PrivateStarving",
		IP:               "127.0.0.1",
		Port:             8080,
		MaxPlayers:       40,
		ProtocolVersion:  "24",
		Seed:             1337,
		Spawn:            Point{X: 15255.34636925946, Y: 13529.856929439708},
		AttackIntervalMs: 560,
		CraftUnitMs:      1000,
		TickRateHz:       10,
		DayLengthMs:      8 * 60 * 1000,
		InventorySlots:   10,
		PlaceDistance:    120,
		NicknameMaxLen:   16,
		StarterItems: []StarterItem{
			{Item: 26, Amount: 1},
			{Item: 102, Amount: 1, Equip: true},
			{Item: 105, Amount: 1},
		},
		CleanCloseCodes: []int{1000, 1005},
		JournalDir:      "./data/journal",
		IndexDB:         "./data/index.db",
	}
}

// Load reads a YAML file on top of Defaults. Keys absent from the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("server.yaml: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.MaxPlayers <= 0:
		return fmt.Errorf("max_players must be > 0")
	case strings.TrimSpace(c.ProtocolVersion) == "":
		return fmt.Errorf("protocol_version must be set")
	case c.AttackIntervalMs <= 0:
		return fmt.Errorf("attack_interval_ms must be > 0")
	case c.CraftUnitMs <= 0:
		return fmt.Errorf("craft_unit_ms must be > 0")
	case c.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case c.DayLengthMs <= 0:
		return fmt.Errorf("day_length_ms must be > 0")
	case c.InventorySlots <= 0:
		return fmt.Errorf("inventory_slots must be > 0")
	case c.NicknameMaxLen <= 0:
		return fmt.Errorf("nickname_max_len must be > 0")
	}
	for i, s := range c.StarterItems {
		if s.Amount <= 0 {
			return fmt.Errorf("starter_items[%d]: amount must be > 0", i)
		}
	}
	return nil
}

// ListenAddr returns Addr, or ":<port>" when Addr is empty.
func (c Config) ListenAddr() string {
	if strings.TrimSpace(c.Addr) != "" {
		return c.Addr
	}
	return fmt.Sprintf(":%d", c.Port)
}

func (c Config) IsCleanClose(code int) bool {
	for _, cc := range c.CleanCloseCodes {
		if cc == code {
			return true
		}
	}
	return false
}
