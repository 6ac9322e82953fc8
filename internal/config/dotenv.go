package config

import (
	"bufio"
	"os"
	"strings"
)

// LoadDotEnv seeds the process environment from a .env file so local
// runs can carry SUPABASE_URL, ZUMRAILS_API_KEY and friends without
// exporting them by hand. Real environment variables always win: a
// key that is already set is never overridden, so deployed configs
// cannot be shadowed by a stray file. Returns the open error when the
// file is missing; callers that treat .env as optional ignore it.
func LoadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// parseDotEnvLine splits one KEY=VALUE line. Blank lines, comments and
// lines without "=" are skipped; surrounding quotes on the value are
// stripped.
func parseDotEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(k)
	if key == "" {
		return "", "", false
	}
	value = strings.Trim(strings.TrimSpace(v), `"'`)
	return key, value, true
}
