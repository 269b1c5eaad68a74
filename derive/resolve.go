/*
Copyright 2025 The thumbcache authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package derive

import (
	"os"
	"path/filepath"

	"github.com/avatarlab/thumbcache/imgformat"
)

// resolveBase probes the base artifact candidates for a hash in order,
// '<hash>.png' then '<hash>.jpg', and returns the first that exists as a
// regular file. When neither exists, ok is false and the returned path is
// the PNG candidate; callers surface that non-existent path as a sentinel
// so their callers can fall back instead of failing hard.
func resolveBase(outputDir, baseHash string) (path string, ok bool) {
	candidates := []string{
		filepath.Join(outputDir, baseHash+"."+imgformat.PNG.Ext()),
		filepath.Join(outputDir, baseHash+"."+imgformat.JPEG.Ext()),
	}
	for _, c := range candidates {
		if fi, err := os.Lstat(c); err == nil && fi.Mode().IsRegular() {
			return c, true
		}
	}
	return candidates[0], false
}

// fileExists reports whether path exists as a regular file.
func fileExists(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode().IsRegular()
}
