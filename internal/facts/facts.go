package facts

import "strconv"

// DependencyKind classifies a dependency edge between two types.
type DependencyKind string

const (
	KindExtends        DependencyKind = "EXTENDS"
	KindImplements     DependencyKind = "IMPLEMENTS"
	KindFieldType      DependencyKind = "FIELD_TYPE"
	KindParameterType  DependencyKind = "PARAMETER_TYPE"
	KindReturnType     DependencyKind = "RETURN_TYPE"
	KindMethodCall     DependencyKind = "METHOD_CALL"
	KindAnnotationType DependencyKind = "ANNOTATION_TYPE"
)

// Visibility of a class or member as seen in bytecode.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityPackage   Visibility = "PACKAGE"
	VisibilityPrivate   Visibility = "PRIVATE"
)

// OriginKind tells where a compilation unit came from.
type OriginKind string

const (
	OriginFilesystem OriginKind = "filesystem"
	OriginJar        OriginKind = "jar"
)

// Location points at the source of a fact.
type Location struct {
	Origin     OriginKind `json:"origin,omitempty"`
	Container  string     `json:"container,omitempty"`
	Entry      string     `json:"entry,omitempty"`
	SourceFile string     `json:"source_file,omitempty"`
	Line       int        `json:"line,omitempty"`
}

// ClassFact is an immutable structural observation about one class.
// Identity is FqName, unique per scan.
type ClassFact struct {
	FqName        string     `json:"fq_name"`
	Package       string     `json:"package"`
	SimpleName    string     `json:"simple_name"`
	Visibility    Visibility `json:"visibility"`
	IsInterface   bool       `json:"is_interface,omitempty"`
	IsAbstract    bool       `json:"is_abstract,omitempty"`
	IsEnum        bool       `json:"is_enum,omitempty"`
	Annotations   []string   `json:"annotations,omitempty"`
	SuperClass    string     `json:"super_class,omitempty"`
	Interfaces    []string   `json:"interfaces,omitempty"`
	HasMainMethod bool       `json:"has_main_method,omitempty"`
	Location      Location   `json:"location,omitempty"`
}

// MethodFact describes one method. Identity is (Owner, Name, Descriptor).
type MethodFact struct {
	Owner        string     `json:"owner"`
	Name         string     `json:"name"`
	Descriptor   string     `json:"descriptor"`
	Visibility   Visibility `json:"visibility"`
	IsStatic     bool       `json:"is_static,omitempty"`
	IsFinal      bool       `json:"is_final,omitempty"`
	IsAbstract   bool       `json:"is_abstract,omitempty"`
	Annotations  []string   `json:"annotations,omitempty"`
	ReturnType   string     `json:"return_type,omitempty"`
	ParamTypes   []string   `json:"param_types,omitempty"`
	Instructions int        `json:"instructions,omitempty"`
	Location     Location   `json:"location,omitempty"`
}

// FieldFact describes one field. Identity is (Owner, Name, Descriptor).
type FieldFact struct {
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	Descriptor  string     `json:"descriptor"`
	Visibility  Visibility `json:"visibility"`
	IsStatic    bool       `json:"is_static,omitempty"`
	IsFinal     bool       `json:"is_final,omitempty"`
	Annotations []string   `json:"annotations,omitempty"`
	FieldType   string     `json:"field_type,omitempty"`
	Location    Location   `json:"location,omitempty"`
}

// DependencyFact is a directed edge between two types. From must differ
// from To and To must be non-blank; edges violating that are dropped at
// normalization time. Detail carries the member-level context, e.g.
// "name(descriptor)" of a called method or the name of a read field.
type DependencyFact struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Kind     DependencyKind `json:"kind"`
	FilePath string         `json:"file_path,omitempty"`
	Detail   string         `json:"detail,omitempty"`
	Location Location       `json:"location,omitempty"`
}

// Key returns the deduplication key of the edge.
func (d DependencyFact) Key() string {
	return d.From + "|" + d.To + "|" + string(d.Kind) + "|" + d.FilePath + "|" + d.Detail + "|" + locKey(d.Location)
}

func locKey(l Location) string {
	return l.SourceFile + ":" + strconv.Itoa(l.Line)
}

// MethodKey is the identity tuple of a method fact.
func (m MethodFact) Key() string {
	return m.Owner + "#" + m.Name + m.Descriptor
}

// FieldKey is the identity tuple of a field fact.
func (f FieldFact) Key() string {
	return f.Owner + "#" + f.Name + "|" + f.Descriptor
}
