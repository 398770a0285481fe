package ir

// Visitor receives one call per node kind through Node.Accept.
type Visitor interface {
	VisitIntConst(*IntConst) error
	VisitLongConst(*LongConst) error
	VisitFloatConst(*FloatConst) error
	VisitDoubleConst(*DoubleConst) error
	VisitStringConst(*StringConst) error
	VisitNullConst(*NullConst) error
	VisitObjectConst(*ObjectConst) error
	VisitVar(*Var) error
	VisitTemp(*Temp) error
	VisitUnary(*Unary) error
	VisitBinary(*Binary) error
	VisitConvert(*Convert) error
	VisitCast(*Cast) error
	VisitAssign(*Assign) error
	VisitGetField(*GetField) error
	VisitArrayElem(*ArrayElem) error
	VisitNewArray(*NewArray) error
	VisitCall(*Call) error
	VisitNew(*New) error
	VisitComma(*Comma) error
	VisitInstanceOf(*InstanceOf) error
	VisitMonitor(*Monitor) error
	VisitBlock(*Block) error
	VisitBody(*Body) error
	VisitGoto(*Goto) error
	VisitBranch(*Branch) error
	VisitSwitch(*Switch) error
	VisitReturn(*Return) error
	VisitThrow(*Throw) error
	VisitCallable(*Callable) error
}

func (n *IntConst) Accept(v Visitor) error    { return v.VisitIntConst(n) }
func (n *LongConst) Accept(v Visitor) error   { return v.VisitLongConst(n) }
func (n *FloatConst) Accept(v Visitor) error  { return v.VisitFloatConst(n) }
func (n *DoubleConst) Accept(v Visitor) error { return v.VisitDoubleConst(n) }
func (n *StringConst) Accept(v Visitor) error { return v.VisitStringConst(n) }
func (n *NullConst) Accept(v Visitor) error   { return v.VisitNullConst(n) }
func (n *ObjectConst) Accept(v Visitor) error { return v.VisitObjectConst(n) }
func (n *Var) Accept(v Visitor) error         { return v.VisitVar(n) }
func (n *Temp) Accept(v Visitor) error        { return v.VisitTemp(n) }
func (n *Unary) Accept(v Visitor) error       { return v.VisitUnary(n) }
func (n *Binary) Accept(v Visitor) error      { return v.VisitBinary(n) }
func (n *Convert) Accept(v Visitor) error     { return v.VisitConvert(n) }
func (n *Cast) Accept(v Visitor) error        { return v.VisitCast(n) }
func (n *Assign) Accept(v Visitor) error      { return v.VisitAssign(n) }
func (n *GetField) Accept(v Visitor) error    { return v.VisitGetField(n) }
func (n *ArrayElem) Accept(v Visitor) error   { return v.VisitArrayElem(n) }
func (n *NewArray) Accept(v Visitor) error    { return v.VisitNewArray(n) }
func (n *Call) Accept(v Visitor) error        { return v.VisitCall(n) }
func (n *New) Accept(v Visitor) error         { return v.VisitNew(n) }
func (n *Comma) Accept(v Visitor) error       { return v.VisitComma(n) }
func (n *InstanceOf) Accept(v Visitor) error  { return v.VisitInstanceOf(n) }
func (n *Monitor) Accept(v Visitor) error     { return v.VisitMonitor(n) }
func (n *Block) Accept(v Visitor) error       { return v.VisitBlock(n) }
func (n *Body) Accept(v Visitor) error        { return v.VisitBody(n) }
func (n *Goto) Accept(v Visitor) error        { return v.VisitGoto(n) }
func (n *Branch) Accept(v Visitor) error      { return v.VisitBranch(n) }
func (n *Switch) Accept(v Visitor) error      { return v.VisitSwitch(n) }
func (n *Return) Accept(v Visitor) error      { return v.VisitReturn(n) }
func (n *Throw) Accept(v Visitor) error       { return v.VisitThrow(n) }
func (n *Callable) Accept(v Visitor) error    { return v.VisitCallable(n) }
