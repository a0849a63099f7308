// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the data structures for the application. This file,
// `examples.go`, provides example instances of the generated structures.
//
// The examples are rendered into prompts as few-shot guidance so the
// generative models return JSON in exactly the shape the parser expects.
package model

import "encoding/json"

// GetExampleStructuredContent returns a sample repurposing result.
func GetExampleStructuredContent() *StructuredContent {
	return &StructuredContent{
		BlogPost: "<h1>Pourquoi automatiser vos relances</h1><p>Relancer un prospect prend du temps...</p>" +
			"<h2>Les trois erreurs à éviter</h2><ul><li>Relancer trop tôt</li><li>Copier-coller le même message</li></ul>",
		TwitterThread: []string{
			"1/ Vous perdez des ventes faute de relance. Voici comment y remédier 🧵",
			"2/ Première règle : attendre 3 jours ouvrés avant la première relance.",
			"3/ Dernière règle : personnaliser chaque message. Fin du thread.",
		},
		LinkedinPost: "🚀 Les relances commerciales ne sont pas une corvée.\n\nVoici ce que j'ai appris en automatisant les miennes...",
	}
}

// GetExampleToolConfig returns a sample tool definition.
func GetExampleToolConfig() *ToolConfig {
	return &ToolConfig{
		Name:        "Cold Email Pro",
		Description: "Génère des emails de prospection personnalisés",
		Inputs: []ToolInput{
			{Key: "targetName", Label: "Nom du prospect", Type: ToolInputText},
			{Key: "tone", Label: "Ton", Type: ToolInputSelect, Options: []string{"Amical", "Formel"}},
		},
		PromptTemplate: "Rédige un email de prospection pour {{targetName}} avec un ton {{tone}}.",
	}
}

// ExampleJSON renders an example as indented JSON for prompt templates.
func ExampleJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
