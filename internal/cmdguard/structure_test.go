package cmdguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckSimpleCommand(t *testing.T) {
	ok := []string{
		"ls",
		"ls -la src",
		"git log --oneline -10",
		"npm ls --depth=0",
		"cat ../x/y.txt",
	}
	for _, line := range ok {
		assert.NoError(t, checkSimpleCommand(line), line)
	}

	bad := []string{
		"ls; rm x",
		"ls && pwd",
		"ls | sh",
		"ls > out",
		"ls &",
		"! ls",
		"FOO=1 ls",
		"echo $HOME",
		"echo $(id)",
		"echo 'quoted'",
		"(ls)",
		"if true; then ls; fi",
		"ls 'unterminated",
		"",
	}
	for _, line := range bad {
		assert.Error(t, checkSimpleCommand(line), line)
	}
}
