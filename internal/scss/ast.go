package scss

type stmt interface{}

type varDecl struct {
	name   string
	value  []token
	def    bool
	global bool
	pos    token
}

type declStmt struct {
	prop  []token
	value []token
	pos   token
}

// propGroupStmt is a nested property block such as "font: { size: 1px }".
// Children are declarations with the group's name as prefix.
type propGroupStmt struct {
	prop  []token
	value []token
	body  []stmt
	pos   token
}

type ruleStmt struct {
	selector []token
	body     []stmt
	pos      token
}

type atStmt struct {
	name     string
	prelude  []token
	body     []stmt
	hasBlock bool
	pos      token
}

type importStmt struct {
	prelude []token
	pos     token
}

type param struct {
	name string
	def  []token
}

type mixinStmt struct {
	name   string
	params []param
	body   []stmt
	pos    token
}

type includeStmt struct {
	name string
	args [][]token
	pos  token
}

type commentStmt struct {
	text string
}
