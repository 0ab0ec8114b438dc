package detect

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadClassNames reads the class names the model was trained on from the
// given text file, one name per line.  Line number corresponds to class
// index
func LoadClassNames(file string) ([]string, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening class names file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var names []string

	for scanner.Scan() {
		names = append(names, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading class names file: %w", err)
	}

	return names, nil
}
