package app

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
)

// MenuItem maps a key typed at the prompt to a value, typically an image path.
type MenuItem struct {
	Key   string
	Label string
	Value string
}

// Menu prints items and reads one line. It returns the chosen item, or ok=false for any
// other input, EOF or interrupt.
func Menu(items []MenuItem) (MenuItem, bool, error) {
	for _, it := range items {
		fmt.Printf("%s: %s\n", it.Key, it.Label)
	}
	fmt.Println("Any other key to quit")

	rl, err := readline.New("Enter a number: ")
	if err != nil {
		return MenuItem{}, false, err
	}
	defer func() {
		_ = rl.Close()
	}()
	line, err := rl.Readline()
	if err != nil { // io.EOF, readline.ErrInterrupt
		return MenuItem{}, false, nil
	}
	it, ok := Pick(items, line)
	return it, ok, nil
}

// Pick is the non-interactive half of Menu.
func Pick(items []MenuItem, key string) (MenuItem, bool) {
	key = strings.TrimSpace(key)
	for _, it := range items {
		if it.Key == key {
			return it, true
		}
	}
	return MenuItem{}, false
}
