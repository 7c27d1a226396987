package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"taskboard/backend/utils/apperrors"
)

// LoadBlackList reads one forbidden password per line. Blank lines are
// ignored.
func LoadBlackList(r io.Reader) (map[string]bool, error) {
	blackList := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			blackList[line] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return blackList, nil
}

func LoadBlackListFile(filePath string) (map[string]bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	blackList, err := LoadBlackList(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	return blackList, nil
}

// WithBlackList makes CreateUser reject temporary passwords found in
// blackList.
func (s *UserService) WithBlackList(blackList map[string]bool) *UserService {
	s.blackList = blackList
	return s
}

func (s *UserService) checkPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	if s.blackList[password] {
		return apperrors.BadRequest("password is too common")
	}
	return nil
}
