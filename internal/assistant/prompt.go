package assistant

import "fmt"

// engineNames maps dialect names to how prompts refer to the engine.
var engineNames = map[string]string{
	"sqlite3":  "SQLite",
	"mysql":    "MySQL",
	"postgres": "PostgreSQL",
}

func engineName(dialect string) string {
	if n, ok := engineNames[dialect]; ok {
		return n
	}
	return "SQL"
}

func firstPrompt(engine, schema, question string) string {
	return fmt.Sprintf(`Given this %[1]s database schema:

%[2]s

Convert this natural language query to a SQL SELECT statement:
"%[3]s"

Requirements:
- Only return the SQL statement, nothing else
- Use proper %[1]s syntax
- Only generate READ queries (SELECT statements)
- Only use the tables listed in the schema
- Do not include any explanations or markdown

SQL:`, engine, schema, question)
}

func retryPrompt(engine, schema, question, previous, failure string) string {
	return fmt.Sprintf(`Given this %[1]s database schema:

%[2]s

I tried to convert this natural language query to SQL:
"%[3]s"

The previous SQL query was:
%[4]s

But it failed with this error:
%[5]s

Please fix the SQL query to resolve this error.

Requirements:
- Only return the corrected SQL statement, nothing else
- Use proper %[1]s syntax
- Only generate READ queries (SELECT statements)
- Only use the tables listed in the schema
- Do not include any explanations or markdown

Corrected SQL:`, engine, schema, question, previous, failure)
}
