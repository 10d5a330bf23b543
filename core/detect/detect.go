package detect

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	bbtDatabaseName    = "better-bibtex.sqlite"
	zoteroDatabaseName = "zotero.sqlite"
	dataDirPref        = "extensions.zotero.dataDir"
)

// Defaults holds every value the local system could provide. Empty fields
// mean detection failed; the API key can never be detected.
type Defaults struct {
	DataDir     string
	BBTDatabase string
	LibraryID   string
}

// Detect probes the local system for all detectable configuration values.
// Every probe is read-only and failures surface as absence, not errors.
func Detect() Defaults {
	var d Defaults
	dataDir, ok := DataDir()
	if !ok {
		return d
	}
	d.DataDir = dataDir
	if db, ok := BBTDatabase(dataDir); ok {
		d.BBTDatabase = db
	}
	if id, ok := LibraryID(dataDir); ok {
		d.LibraryID = id
	}
	return d
}

// DataDir locates the Zotero data directory for the current OS. On Linux,
// Zotero uses a Firefox-style profile layout, so profiles.ini is consulted
// and a prefs.js dataDir override honored.
func DataDir() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	switch runtime.GOOS {
	case "darwin":
		return checkDir(filepath.Join(home, "Library", "Application Support", "Zotero"))
	case "windows":
		return checkDir(filepath.Join(home, "AppData", "Roaming", "Zotero", "Zotero"))
	default:
		return linuxDataDir(filepath.Join(home, ".zotero", "zotero"))
	}
}

// BBTDatabase returns the Better BibTeX database path inside dataDir if the
// file exists.
func BBTDatabase(dataDir string) (string, bool) {
	candidate := filepath.Join(dataDir, bbtDatabaseName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	return "", false
}

// LibraryID reads the Zotero web user ID from the settings table of
// zotero.sqlite. It is absent until the local client has synced once.
func LibraryID(dataDir string) (string, bool) {
	path := filepath.Join(dataDir, zoteroDatabaseName)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}

	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return "", false
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	var value string
	err = db.Raw("SELECT value FROM settings WHERE setting = 'account' AND key = 'userID'").Scan(&value).Error
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// linuxDataDir resolves the data directory from a Firefox-style profiles
// root: pick the Default=1 profile (or the first one), then honor a prefs.js
// dataDir override when it points at a real directory.
func linuxDataDir(profilesRoot string) (string, bool) {
	iniPath := filepath.Join(profilesRoot, "profiles.ini")
	cfg, err := ini.Load(iniPath)
	if err != nil {
		return "", false
	}

	var chosen string
	for _, section := range cfg.Sections() {
		if !strings.HasPrefix(strings.ToLower(section.Name()), "profile") {
			continue
		}
		path := section.Key("Path").String()
		if path == "" {
			continue
		}
		if section.Key("Default").MustBool(false) {
			chosen = path
			break
		}
		if chosen == "" {
			chosen = path
		}
	}
	if chosen == "" {
		return "", false
	}

	profilePath := chosen
	if !filepath.IsAbs(profilePath) {
		profilePath = filepath.Join(profilesRoot, chosen)
	}

	if custom, ok := readPref(filepath.Join(profilePath, "prefs.js"), dataDirPref); ok {
		if dir, ok := checkDir(custom); ok {
			return dir, true
		}
	}
	return checkDir(profilePath)
}

// readPref extracts a single string preference from a Firefox prefs.js file.
func readPref(prefsPath, key string) (string, bool) {
	data, err := os.ReadFile(prefsPath)
	if err != nil {
		return "", false
	}
	pattern := regexp.MustCompile(`user_pref\("` + regexp.QuoteMeta(key) + `",\s*"([^"]+)"\)`)
	m := pattern.FindSubmatch(data)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

func checkDir(path string) (string, bool) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path, true
	}
	return "", false
}
