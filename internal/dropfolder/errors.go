package dropfolder

import "errors"

// ErrNotDirectory indicates the watch path is missing or not a directory.
var ErrNotDirectory = errors.New("drop folder is not a directory")
