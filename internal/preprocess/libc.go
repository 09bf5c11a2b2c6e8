package preprocess

import (
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

//go:embed libc/*.h
var stubLibcFS embed.FS

const stubLibcBody = "#include \"fake_defines.h\"\n#include \"fake_typedefs.h\"\n"

// stubHeaders are the system headers shadowed by the stub libc. Each one only
// pulls in the shared defines and typedefs, so the real C library's compiler
// extensions never reach the parser.
var stubHeaders = []string{
	"alloca.h",
	"assert.h",
	"complex.h",
	"ctype.h",
	"dirent.h",
	"dlfcn.h",
	"errno.h",
	"fcntl.h",
	"fenv.h",
	"float.h",
	"grp.h",
	"ieeefp.h",
	"inttypes.h",
	"iso646.h",
	"langinfo.h",
	"libintl.h",
	"limits.h",
	"locale.h",
	"malloc.h",
	"math.h",
	"netdb.h",
	"poll.h",
	"pthread.h",
	"pwd.h",
	"sched.h",
	"semaphore.h",
	"setjmp.h",
	"signal.h",
	"stdalign.h",
	"stdarg.h",
	"stdatomic.h",
	"stdbool.h",
	"stddef.h",
	"stdint.h",
	"stdio.h",
	"stdlib.h",
	"string.h",
	"strings.h",
	"termios.h",
	"threads.h",
	"time.h",
	"unistd.h",
	"utime.h",
	"wchar.h",
	"wctype.h",
	"arpa/inet.h",
	"netinet/in.h",
	"sys/file.h",
	"sys/ioctl.h",
	"sys/mman.h",
	"sys/param.h",
	"sys/resource.h",
	"sys/select.h",
	"sys/socket.h",
	"sys/stat.h",
	"sys/time.h",
	"sys/times.h",
	"sys/types.h",
	"sys/uio.h",
	"sys/un.h",
	"sys/utsname.h",
	"sys/wait.h",
}

// WriteStubLibc writes the stub C library headers under dir.
func WriteStubLibc(dir string) error {
	entries, err := stubLibcFS.ReadDir("libc")
	if err != nil {
		return fmt.Errorf("read stub libc: %w", err)
	}
	for _, entry := range entries {
		data, err := stubLibcFS.ReadFile(path.Join("libc", entry.Name()))
		if err != nil {
			return fmt.Errorf("read stub libc: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, entry.Name()), data, 0644); err != nil {
			return fmt.Errorf("write stub libc: %w", err)
		}
	}

	for _, name := range stubHeaders {
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("write stub libc: %w", err)
		}
		if err := os.WriteFile(target, []byte(stubLibcBody), 0644); err != nil {
			return fmt.Errorf("write stub libc: %w", err)
		}
	}
	return nil
}
