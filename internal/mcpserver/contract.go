package mcpserver

const formatURI = "scribe://note-format"

// NoteFormat describes how notes are stored so that LLM consumers create
// content the web editor can render.
const NoteFormat = `# Scribe Note Format

A note has a plain-text **title** and an HTML **content** body.

## Rules

1. Both title and content are required when creating a note.
2. Content is rich text as produced by a WYSIWYG editor: use ` + "`<p>`" + `, ` + "`<h1>`" + `-` + "`<h3>`" + `,
   ` + "`<ul>/<ol>/<li>`" + `, ` + "`<strong>`" + `, ` + "`<em>`" + ` and ` + "`<br>`" + `. No scripts or styles.
3. Updates replace only the fields you send; an empty field keeps the stored value.
4. Notes belong to the account whose token started this server. Other
   accounts' notes cannot be read or changed.
5. ` + "`export_note`" + ` returns ` + "`# <title>`" + ` followed by the content as plain text.

## Example

` + "```html" + `
<h1>Standup</h1>
<ul><li>shipped export</li><li>reviewing sync</li></ul>
` + "```" + `
`
