package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/barnettlynn/ncamd/pkg/newcamd"
)

// AccountsFile is the on-disk shape of the accounts YAML document.
type AccountsFile struct {
	Accounts []accountEntry `yaml:"accounts" validate:"dive"`
}

type accountEntry struct {
	Username       string       `yaml:"username" validate:"required"`
	Password       string       `yaml:"password" validate:"required"`
	Enabled        *bool        `yaml:"enabled"`
	CAID           string       `yaml:"caid" validate:"required,len=4,hexadecimal"`
	ExtraCAIDs     []string     `yaml:"extra_caids" validate:"max=8,dive,len=4,hexadecimal"`
	Keys           []keyEntry   `yaml:"keys" validate:"max=8,dive"`
	IPWhitelist    []string     `yaml:"ip_whitelist" validate:"max=16"`
	SIDWhitelist   []string     `yaml:"sid_whitelist" validate:"max=64,dive,len=4,hexadecimal"`
	Schedule       *scheduleYAML `yaml:"schedule"`
	Expiration     string       `yaml:"expiration"`
	MaxConns       int          `yaml:"max_connections"`
	MaxIdle        Duration     `yaml:"max_idle"`
	FakeCW         bool         `yaml:"fake_cw"`
}

type keyEntry struct {
	CAID string `yaml:"caid" validate:"required,len=4,hexadecimal"`
	K0   string `yaml:"k0" validate:"required,len=32,hexadecimal"`
	K1   string `yaml:"k1" validate:"required,len=32,hexadecimal"`
}

type scheduleYAML struct {
	DayFrom int    `yaml:"day_from" validate:"gte=0,lte=6"`
	DayTo   int    `yaml:"day_to" validate:"gte=0,lte=6"`
	From    string `yaml:"from" validate:"required"`
	To      string `yaml:"to" validate:"required"`
}

// LoadAccounts reads and converts the accounts file at path into the
// in-memory Account records the core consumes (§3).
func LoadAccounts(path string) ([]*newcamd.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	var file AccountsFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Accounts))
	accounts := make([]*newcamd.Account, 0, len(file.Accounts))
	for _, e := range file.Accounts {
		if seen[e.Username] {
			return nil, fmt.Errorf("config: %s: duplicate username %q", path, e.Username)
		}
		seen[e.Username] = true

		acc, err := e.toAccount()
		if err != nil {
			return nil, fmt.Errorf("config: %s: account %q: %w", path, e.Username, err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// NewAccountParams carries the fields ncamdctl's "accounts add" collects
// interactively into a single call to AppendAccount.
type NewAccountParams struct {
	Username string
	Password string
	CAID     string
	K0, K1   string
	Enabled  bool
}

// AppendAccount adds one account to the YAML file at path, creating the
// file with an empty account list first if it does not exist. The whole
// document is rewritten; comments in the file are not preserved,
// matching genconfig's treat-the-file-as-generated convention.
func AppendAccount(path string, p NewAccountParams) error {
	var file AccountsFile
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(strings.NewReader(string(raw)))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// start a fresh accounts file
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	for _, e := range file.Accounts {
		if e.Username == p.Username {
			return fmt.Errorf("config: account %q already exists in %s", p.Username, path)
		}
	}

	enabled := p.Enabled
	file.Accounts = append(file.Accounts, accountEntry{
		Username: p.Username,
		Password: p.Password,
		Enabled:  &enabled,
		CAID:     strings.ToUpper(p.CAID),
		Keys: []keyEntry{{
			CAID: strings.ToUpper(p.CAID),
			K0:   strings.ToUpper(p.K0),
			K1:   strings.ToUpper(p.K1),
		}},
	})

	if err := validate.Struct(&file); err != nil {
		return fmt.Errorf("config: new account fails validation: %w", err)
	}

	out, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func (e accountEntry) toAccount() (*newcamd.Account, error) {
	caid, err := parseHex16(e.CAID)
	if err != nil {
		return nil, fmt.Errorf("caid: %w", err)
	}

	extraCAIDs := make([]uint16, 0, len(e.ExtraCAIDs))
	for _, s := range e.ExtraCAIDs {
		v, err := parseHex16(s)
		if err != nil {
			return nil, fmt.Errorf("extra_caids: %w", err)
		}
		extraCAIDs = append(extraCAIDs, v)
	}

	keys := make([]newcamd.AccountKeyPair, 0, len(e.Keys))
	for _, k := range e.Keys {
		kp, err := k.toKeyPair()
		if err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		keys = append(keys, kp)
	}

	sidWhitelist := make([]uint16, 0, len(e.SIDWhitelist))
	for _, s := range e.SIDWhitelist {
		v, err := parseHex16(s)
		if err != nil {
			return nil, fmt.Errorf("sid_whitelist: %w", err)
		}
		sidWhitelist = append(sidWhitelist, v)
	}

	var schedule *newcamd.Schedule
	if e.Schedule != nil {
		from, err := parseHHMM(e.Schedule.From)
		if err != nil {
			return nil, fmt.Errorf("schedule.from: %w", err)
		}
		to, err := parseHHMM(e.Schedule.To)
		if err != nil {
			return nil, fmt.Errorf("schedule.to: %w", err)
		}
		schedule = &newcamd.Schedule{
			DayFrom:  e.Schedule.DayFrom,
			DayTo:    e.Schedule.DayTo,
			HHMMFrom: from,
			HHMMTo:   to,
		}
	}

	var expiration time.Time
	if strings.TrimSpace(e.Expiration) != "" {
		t, err := time.Parse(time.RFC3339, e.Expiration)
		if err != nil {
			return nil, fmt.Errorf("expiration: %w", err)
		}
		expiration = t
	}

	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	return &newcamd.Account{
		Username:     e.Username,
		Password:     e.Password,
		Enabled:      enabled,
		CAID:         caid,
		ExtraCAIDs:   extraCAIDs,
		Keys:         keys,
		IPWhitelist:  e.IPWhitelist,
		SIDWhitelist: sidWhitelist,
		Schedule:     schedule,
		Expiration:   expiration,
		MaxConns:     e.MaxConns,
		MaxIdle:      e.MaxIdle.Duration(),
		FakeCW:       e.FakeCW,
	}, nil
}

func (k keyEntry) toKeyPair() (newcamd.AccountKeyPair, error) {
	var kp newcamd.AccountKeyPair
	caid, err := parseHex16(k.CAID)
	if err != nil {
		return kp, fmt.Errorf("caid: %w", err)
	}
	k0, err := hex.DecodeString(k.K0)
	if err != nil || len(k0) != 16 {
		return kp, fmt.Errorf("k0: want 32 hex chars")
	}
	k1, err := hex.DecodeString(k.K1)
	if err != nil || len(k1) != 16 {
		return kp, fmt.Errorf("k1: want 32 hex chars")
	}
	kp.CAID = caid
	copy(kp.K0[:], k0)
	copy(kp.K1[:], k1)
	return kp, nil
}

func parseHex16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a 16-bit hex value", s)
	}
	return uint16(v), nil
}

func parseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("%q is not HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%q has an invalid hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%q has an invalid minute", s)
	}
	return h*100 + m, nil
}
