package render

import (
	"strings"

	"github.com/roach88/countbot/internal/game"
)

const helpTemplate = `🔢 Welcome to the Counting Game! 🔢

Rules:
1. Count up from 1, one number at a time.
2. Base 10.
3. NO BOTS ALLOWED!!!
4. Each person can only count once in a row.
5. {{mistake}}

You can use basic math operations to represent numbers:
• Addition: 2+3
• Subtraction: 10-7
• Multiplication: 4*3
• Division: 15/3
• Exponents: 2^3
• Square roots: √16, √(25+11), sqrt(16), or sqrt(25+11)
• Cube roots: ∛27 or cbrt(27)
• Factorials: 5! (be careful with large numbers!)
• Comments: 7 // lucky number

Commands:
• !stats - View game statistics
• !help - Show this help message
• !eval <expression> - Evaluate without counting

Have fun counting! 🎉
`

// Help renders the rules and supported notation for policy.
func Help(policy game.Policy) string {
	mistake := "If someone makes a mistake, the count continues without resetting."
	if policy == game.PolicyReset {
		mistake = "If someone makes a mistake, the count resets to 1."
	}
	return strings.Replace(helpTemplate, "{{mistake}}", mistake, 1)
}
