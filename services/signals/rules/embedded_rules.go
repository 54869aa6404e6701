// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file bridges the build system and the runtime logic. It uses the Go
embed package to bake conversation_rules.yaml directly into the compiled
binary, so the default rule tables are immutable at runtime and travel
with the executable. Deployments that need tuned rules point the engine
at an external YAML file instead (see signals.LoadFile).
*/

package rules

import (
	_ "embed"
)

// ConversationRules holds the raw byte content of conversation_rules.yaml.
//
// Populated at compile time via the Go 'embed' directive. Pass these
// bytes to yaml.Unmarshal through signals.Load.
//
//go:embed conversation_rules.yaml
var ConversationRules []byte
