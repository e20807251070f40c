package utils

import (
	"github.com/kardianos/osext"
)

func GetExecutableDir() string {
	exfolder, err := osext.ExecutableFolder()
	Check(err, "Could not determine executable folder")

	return exfolder
}
