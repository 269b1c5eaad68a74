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

package arbiter

import "strings"

// RenderType selects the kind of avatar render requested from the renderer.
type RenderType string

const (
	TypeHeadshot  RenderType = "headshot"
	TypeAvatar    RenderType = "avatar"
	TypeFull      RenderType = "full"
	TypeFullBody  RenderType = "fullbody"
	TypeThumbnail RenderType = "thumbnail"
)

// ParseRenderType normalizes a caller-supplied type string. The legacy alias
// "thumb" maps to TypeThumbnail; the empty string maps to TypeHeadshot.
// Unrecognized values are passed through lowercased, so they reach the
// renderer unchanged and pick up the generic default dimensions.
func ParseRenderType(s string) RenderType {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "":
		return TypeHeadshot
	case "thumb":
		return TypeThumbnail
	default:
		return RenderType(t)
	}
}

// TypeForLegacyFormatID maps legacy numeric thumbnail format IDs to render
// types: 1 headshot, 2 avatar, 3 full, anything else headshot.
func TypeForLegacyFormatID(id int) RenderType {
	switch id {
	case 2:
		return TypeAvatar
	case 3:
		return TypeFull
	default:
		return TypeHeadshot
	}
}

// DefaultDimensions returns the default render dimensions for a type, used
// when the caller supplies no explicit width and height.
func (t RenderType) DefaultDimensions() (width, height int) {
	switch t {
	case TypeHeadshot, TypeFull, TypeFullBody:
		return 1024, 1024
	case TypeAvatar:
		return 420, 800
	case TypeThumbnail:
		return 150, 150
	default:
		return 420, 420
	}
}
