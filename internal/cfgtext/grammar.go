// Package cfgtext parses a small textual notation for region graphs: blocks
// of lifted statements, explicit fall-through edges, back edges, declared
// successors and jump-table metadata. It exists so fixtures and the command
// line tool can describe a region without a binary lifter in the loop.
package cfgtext

type File struct {
	Regions []*RegionDecl `parser:"@@*"`
}

type RegionDecl struct {
	Head  string        `parser:"'region' '@' @Integer '{'"`
	Items []*RegionItem `parser:"@@* '}'"`
}

type RegionItem struct {
	Successors *SuccessorsDecl `parser:"  @@"`
	BackEdge   *BackEdgeDecl   `parser:"| @@"`
	Edge       *EdgeDecl       `parser:"| @@"`
	Table      *TableDecl      `parser:"| @@"`
	Block      *BlockDecl      `parser:"| @@"`
}

type SuccessorsDecl struct {
	Addrs []string `parser:"'successors' @Integer (',' @Integer)* ';'"`
}

type BackEdgeDecl struct {
	From string `parser:"'backedge' @Integer"`
	To   string `parser:"Arrow @Integer ';'"`
}

type EdgeDecl struct {
	From string `parser:"'edge' @Integer"`
	To   string `parser:"Arrow @Integer ';'"`
}

type TableDecl struct {
	Addr    string      `parser:"'table' '@' @Integer"`
	Expr    *Operand    `parser:"'on' @@ '{'"`
	Cases   []*CaseDecl `parser:"@@*"`
	Default *string     `parser:"('default' ':' @Integer ';')? '}'"`
}

type CaseDecl struct {
	Keys   []*CaseKey `parser:"'case' @@ (',' @@)* ':'"`
	Target string     `parser:"@Integer ';'"`
}

type CaseKey struct {
	Neg   bool   `parser:"@'-'?"`
	Value string `parser:"@Integer"`
}

type BlockDecl struct {
	Addr  string      `parser:"'block' '@' @Integer '{'"`
	Stmts []*StmtDecl `parser:"@@* '}'"`
}

type StmtDecl struct {
	If     *IfStmt     `parser:"  @@"`
	Goto   *GotoStmt   `parser:"| @@"`
	Call   *CallStmt   `parser:"| @@"`
	Ret    *RetStmt    `parser:"| @@"`
	Assign *AssignStmt `parser:"| @@"`
}

type IfStmt struct {
	Cond        *ExprNode `parser:"'if' @@"`
	TrueTarget  string    `parser:"'goto' @Integer"`
	FalseTarget string    `parser:"'else' @Integer ';'"`
}

// GotoStmt covers direct jumps to an address and indirect jumps through a
// register (the latter relies on jump-table metadata to become a switch).
type GotoStmt struct {
	Target *Operand `parser:"'goto' @@ ';'"`
}

type CallStmt struct {
	Target string      `parser:"'call' @Ident '('"`
	Args   []*ExprNode `parser:"(@@ (',' @@)*)? ')' ';'"`
}

type RetStmt struct {
	Ret   bool      `parser:"@'return'"`
	Value *ExprNode `parser:"@@? ';'"`
}

type AssignStmt struct {
	Dst *Operand  `parser:"@@ '='"`
	Src *ExprNode `parser:"@@ ';'"`
}

type ExprNode struct {
	Not   bool     `parser:"@'!'?"`
	Left  *Operand `parser:"@@"`
	Op    string   `parser:"(@Operator"`
	Right *Operand `parser:" @@)?"`
}

type Operand struct {
	Const *string `parser:"  @Integer"`
	Reg   *string `parser:"| @Ident"`
}
