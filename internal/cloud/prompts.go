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

package cloud

// DefaultPromptTemplates returns the built in prompts. The configuration
// files may replace any of them.
func DefaultPromptTemplates() PromptTemplates {
	return PromptTemplates{
		RepurposeSystem: "Tu es un expert en marketing de contenu. Tu réponds uniquement avec un objet JSON valide.",
		Repurpose: `Ton but est de reformuler une transcription vidéo en 3 formats distincts.

Voici la transcription :
"{{.Content}}"

Réponds UNIQUEMENT avec ce schéma JSON :
{
  "blogPost": "Code HTML complet de l'article (h1, h2, p, ul). Ton informel et éducatif.",
  "twitterThread": ["Tweet 1", "Tweet 2", "Tweet 3..."],
  "linkedinPost": "Texte professionnel avec emojis et sauts de ligne."
}

Exemple de réponse :
{{.Example}}`,
		ChatSystem: `Tu es un expert technique spécialisé dans les appels d'offres.
Tu dois répondre à la question de l'utilisateur en te basant UNIQUEMENT sur le contexte fourni ci-dessous.
Si la réponse ne se trouve pas dans le contexte, dis poliment que tu ne trouves pas l'information dans les documents fournis.

Contexte :
{{.Context}}`,
		ToolGenerate: `Tu es un architecte logiciel expert en création d'outils no-code.
Ton but est de transformer une demande utilisateur en une configuration d'outil au format JSON strict.

Demande utilisateur : "{{.Description}}"

Tu dois générer un objet JSON avec cette structure exacte :
{
  "name": "Nom court et accrocheur de l'outil",
  "description": "Courte description de ce que fait l'outil",
  "inputs": [
    { "key": "nom_variable", "label": "Libellé pour l'utilisateur", "type": "text | textarea | select", "options": ["Option 1", "Option 2"] }
  ],
  "promptTemplate": "Le prompt que l'IA utilisera pour générer le résultat. Utilise {{"{{"}}nom_variable{{"}}"}} pour insérer les valeurs."
}
Le champ "options" n'est présent que si le type est "select".

Exemple pour 'Générateur de mail' :
{{.Example}}

Réponds UNIQUEMENT le JSON. Pas de markdown, pas de texte avant/après.`,
		JSONOnlySystem:  "Tu es un expert JSON. Réponds uniquement avec le JSON demandé.",
		ChatQuestion:    "Question utilisateur : {{.Question}}",
		ToolRunContext:  "Contexte documentaire :\n{{.Context}}\n\n{{.Prompt}}",
		ImageExtraction: "Transcris fidèlement tout le texte lisible de cette image. Réponds uniquement avec le texte, sans commentaire.",
	}
}
