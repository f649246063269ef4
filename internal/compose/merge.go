package compose

import (
	"fmt"

	"github.com/n9te9/fedgate/internal/model"
	"github.com/n9te9/graphql-parser/ast"
)

// prescanShareable records every @shareable declaration on a type or
// field, across any subgraph, before the merge pass runs. Shareability
// is a property of the union of declarations, not of a single subgraph's
// view (spec §4.B step 4).
func (c *composer) prescanShareable(service string, doc *ast.Document) {
	link := c.links[service]
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			c.prescanShareableObject(d.Name.String(), d.Directives, d.Fields, link)
		case *ast.ObjectTypeExtension:
			c.prescanShareableObject(d.Name.String(), d.Directives, d.Fields, link)
		}
	}
}

func (c *composer) prescanShareableObject(typeName string, directives []*ast.Directive, fields []*ast.FieldDefinition, link linkInfo) {
	if hasDirective(directives, "shareable", link) {
		c.shareableTypes[typeName] = true
	}
	for _, f := range fields {
		if hasDirective(f.Directives, "shareable", link) {
			c.shareableFields[typeName+"."+f.Name.String()] = true
		}
	}
}

func (c *composer) isShareableField(typeName, fieldName string) bool {
	return c.shareableTypes[typeName] || c.shareableFields[typeName+"."+fieldName]
}

// mergeSubgraph processes one subgraph's definitions into c.schema,
// following spec §4.B step 4.
func (c *composer) mergeSubgraph(service string, doc *ast.Document) error {
	link := c.links[service]
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			if isRootTypeName(d.Name.String(), c.schema) {
				if err := c.mergeRootFields(service, d.Name.String(), d.Fields, link, false); err != nil {
					return err
				}
				continue
			}
			if err := c.mergeObject(service, d.Name.String(), d.Directives, d.Fields, link, false); err != nil {
				return err
			}
		case *ast.ObjectTypeExtension:
			if isRootTypeName(d.Name.String(), c.schema) {
				if err := c.mergeRootFields(service, d.Name.String(), d.Fields, link, true); err != nil {
					return err
				}
				continue
			}
			if err := c.mergeObject(service, d.Name.String(), d.Directives, d.Fields, link, true); err != nil {
				return err
			}
		case *ast.InterfaceTypeDefinition:
			if err := c.mergeInterface(service, d, link); err != nil {
				return err
			}
		case *ast.UnionTypeDefinition:
			if err := c.mergeUnion(service, d, link); err != nil {
				return err
			}
		case *ast.EnumTypeDefinition:
			if err := c.mergeEnum(service, d, link); err != nil {
				return err
			}
		case *ast.ScalarTypeDefinition:
			if err := c.mergeScalar(service, d, link); err != nil {
				return err
			}
		case *ast.InputObjectTypeDefinition:
			if err := c.mergeInputObject(service, d, link); err != nil {
				return err
			}
		}
	}
	return nil
}

func isRootTypeName(name string, schema *model.ComposedSchema) bool {
	return name == schema.QueryType || name == schema.MutationType || name == schema.SubscriptionType
}

// mergeRootFields accumulates fields onto a root operation type (I5): no
// owner is ever assigned, and every subgraph's fields are additive.
func (c *composer) mergeRootFields(service, typeName string, fields []*ast.FieldDefinition, link linkInfo, _ bool) error {
	t := c.schema.EnsureType(typeName, model.Object)
	for _, fd := range fields {
		field := c.buildFieldFromDef(typeName, fd, service, link)
		field.Service = service
		t.SetField(field)
	}
	return nil
}

// mergeObject merges one subgraph's view of a non-root object type,
// enforcing I1-I4 (spec §4.B step 4 "Object types").
func (c *composer) mergeObject(service, typeName string, directives []*ast.Directive, fields []*ast.FieldDefinition, link linkInfo, isExtend bool) error {
	existing, existed := c.schema.Lookup(typeName)
	t := c.schema.EnsureType(typeName, model.Object)

	keys, err := parseKeys(directives, link)
	if err != nil {
		return err
	}
	for _, k := range keys {
		t.AddKey(service, k)
	}
	if len(keys) > 0 {
		t.IsEntity = true
	}
	t.Tags = append(t.Tags, fieldTags(directives, link)...)

	typeIsShareable := c.isShareableField(typeName, "") || hasDirective(directives, "shareable", link)

	// Ownership (I1): shareable and entity types keep no single owner.
	if !t.IsEntity && !typeIsShareable {
		if existed && existing.Owner != "" && existing.Owner != service {
			return &Error{Code: CodeValueTypeOwnershipConflicted, TypeName: typeName, OwnerSvc: existing.Owner, CurrentSvc: service}
		}
		if t.Owner == "" {
			t.Owner = service
		}
	}

	// Entity completeness (spec §4.B step 4, stricter composer variant
	// per §9 open question #2): once a prior subgraph has contributed
	// non-key fields, a later non-shareable declaration must either
	// redeclare them or be a pure key-only reference. An `extend type`
	// declaration is a reference to the entity and is not checked.
	if existed && !isExtend && t.IsEntity && !typeIsShareable && len(existing.Fields()) > 0 {
		if err := c.checkEntityCompleteness(service, typeName, existing, fields, keys, link); err != nil {
			return err
		}
	}

	for _, fd := range fields {
		if err := c.mergeField(service, typeName, t, fd, link, isExtend, keys); err != nil {
			return err
		}
	}
	return nil
}

// checkEntityCompleteness enforces: this subgraph's field list is either
// a superset re-declaration of the prior non-key fields, or is itself
// only key fields (a pure reference) — otherwise IncompleteEntityReference.
// Prior fields contributed by an extension (Service set) resolve in that
// subgraph and need not be redeclared.
func (c *composer) checkEntityCompleteness(service, typeName string, existing *model.Type, fields []*ast.FieldDefinition, keys []model.EntityKey, link linkInfo) error {
	keyNames := map[string]bool{}
	for _, k := range keys {
		for _, n := range k.Fields.Names() {
			keyNames[n] = true
		}
	}

	declared := map[string]bool{}
	onlyKeyFields := true
	for _, fd := range fields {
		name := fd.Name.String()
		declared[name] = true
		if !keyNames[name] && !hasDirective(fd.Directives, "external", link) {
			onlyKeyFields = false
		}
	}
	if onlyKeyFields {
		return nil
	}

	var missing []string
	for _, f := range existing.Fields() {
		if keyNames[f.Name] || f.Service != "" {
			continue
		}
		if !declared[f.Name] {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &Error{Code: CodeIncompleteEntityReference, TypeName: typeName, Service: service, Missing: missing}
	}
	return nil
}

// mergeField merges a single field declaration into the accumulated type,
// enforcing I2/I3 (spec §4.B step 4 "Merge fields").
func (c *composer) mergeField(service, typeName string, t *model.Type, fd *ast.FieldDefinition, link linkInfo, isExtend bool, keys []model.EntityKey) error {
	fieldName := fd.Name.String()
	isExternal := hasDirective(fd.Directives, "external", link)
	isKeyField := isKeyFieldOf(keys, fieldName)
	fieldShareable := c.isShareableField(typeName, fieldName)

	if isExtend && isExternal {
		if !isKeyField && !fieldShareable && !c.shareableTypes[typeName] {
			return &Error{Code: CodeNonShareableFieldReferenced, TypeName: typeName, FieldName: fieldName, Service: service}
		}
		return nil
	}

	newField := c.buildFieldFromDef(typeName, fd, service, link)

	existingField, exists := t.Field(fieldName)
	if !exists {
		if isExtend {
			newField.Service = service
		}
		t.SetField(newField)
		c.fieldShape[typeName+"."+fieldName] = fieldShape{service: service, typ: newField.Type, args: newField.Arguments}
		return nil
	}

	shape, hadShape := c.fieldShape[typeName+"."+fieldName]
	if hadShape {
		if shape.typ != newField.Type {
			return &Error{Code: CodeFieldTypeConflicted, TypeName: typeName, FieldName: fieldName, Type1: shape.typ, Type2: newField.Type}
		}
		if err := compareArguments(typeName, fieldName, service, shape, newField.Arguments); err != nil {
			return err
		}
	}

	if !fieldShareable && !isKeyField {
		return &Error{Code: CodeFieldConflicted, TypeName: typeName, FieldName: fieldName}
	}

	// Shapes match and sharing is allowed: merge metadata, keep the
	// earliest-assigned Service unless this subgraph narrows it down.
	merged := *existingField
	merged.Tags = append(merged.Tags, newField.Tags...)
	if merged.Service == "" && isExtend {
		merged.Service = service
	}
	if newField.OverrideFrom != "" {
		merged.OverrideFrom = newField.OverrideFrom
	}
	if newField.Requires != nil {
		merged.Requires = newField.Requires
	}
	if newField.Provides != nil {
		merged.Provides = newField.Provides
	}
	t.SetField(&merged)
	return nil
}

func isKeyFieldOf(keys []model.EntityKey, name string) bool {
	for _, k := range keys {
		if _, ok := k.Fields.Lookup(name); ok {
			return true
		}
	}
	return false
}

func compareArguments(typeName, fieldName, service string, shape fieldShape, args []model.Argument) error {
	existingByName := map[string]model.Argument{}
	for _, a := range shape.args {
		existingByName[a.Name] = a
	}
	seen := map[string]bool{}
	for _, a := range args {
		seen[a.Name] = true
		ex, ok := existingByName[a.Name]
		if !ok {
			continue // new optional arg on this side; required-arg coverage checked below
		}
		if ex.Type != a.Type {
			return &Error{Code: CodeIncompatibleArgumentTypes, TypeName: typeName, FieldName: fieldName, ArgName: a.Name, Type1: ex.Type, Type2: a.Type}
		}
	}
	for _, a := range shape.args {
		if isRequiredArgType(a.Type) && !seen[a.Name] {
			return &Error{Code: CodeMissingRequiredArgument, TypeName: typeName, FieldName: fieldName, ArgName: a.Name, Service: service}
		}
	}
	for _, a := range args {
		if _, ok := existingByName[a.Name]; !ok && isRequiredArgType(a.Type) {
			return &Error{Code: CodeIncompatibleFieldArguments, TypeName: typeName, FieldName: fieldName, Service: shape.service, Service2: service}
		}
	}
	return nil
}

func isRequiredArgType(t string) bool {
	return len(t) > 0 && t[len(t)-1] == '!'
}

func (c *composer) buildFieldFromDef(typeName string, fd *ast.FieldDefinition, service string, link linkInfo) *model.Field {
	f := &model.Field{
		Name:      fd.Name.String(),
		Arguments: parseArguments(fd.Arguments),
		Type:      printASTType(fd.Type),
		Tags:      fieldTags(fd.Directives, link),
	}
	if hasDirective(fd.Directives, "shareable", link) {
		f.Shareable = true
	}
	if hasDirective(fd.Directives, "external", link) {
		f.External = true
	}
	if hasDirective(fd.Directives, "inaccessible", link) {
		f.Inaccessible = true
	}
	if d, ok := directiveByName(fd.Directives, "requires", link); ok {
		if s, ok := stringArg(d, "fields"); ok {
			if set, err := model.ParseFieldSet(s); err == nil {
				f.Requires = set
			}
		}
	}
	if d, ok := directiveByName(fd.Directives, "provides", link); ok {
		if s, ok := stringArg(d, "fields"); ok {
			if set, err := model.ParseFieldSet(s); err == nil {
				f.Provides = set
			}
		}
	}
	if d, ok := directiveByName(fd.Directives, "override", link); ok {
		if s, ok := stringArg(d, "from"); ok {
			f.OverrideFrom = s
		}
	}
	if d, ok := directiveByName(fd.Directives, "deprecated", link); ok {
		f.Deprecated = true
		if r, ok := stringArg(d, "reason"); ok {
			f.DeprecationReason = r
		}
	}
	return f
}

func (c *composer) mergeInterface(service string, d *ast.InterfaceTypeDefinition, link linkInfo) error {
	typeName := d.Name.String()
	existing, existed := c.schema.Lookup(typeName)
	t := c.schema.EnsureType(typeName, model.Interface)

	if existed && existing.Kind != model.Interface {
		return &Error{Code: CodeTypeKindConflicted, TypeName: typeName, Kind1: existing.Kind.String(), Kind2: model.Interface.String()}
	}

	keys, err := parseKeys(d.Directives, link)
	if err != nil {
		return err
	}
	for _, k := range keys {
		t.AddKey(service, k)
	}
	if len(keys) > 0 {
		t.IsEntity = true
	}

	for _, fd := range d.Fields {
		field := c.buildFieldFromDef(typeName, fd, service, link)
		if _, ok := t.Field(field.Name); !ok {
			t.SetField(field)
		}
	}
	return nil
}

func (c *composer) mergeUnion(service string, d *ast.UnionTypeDefinition, link linkInfo) error {
	typeName := d.Name.String()
	existing, existed := c.schema.Lookup(typeName)
	if existed && existing.Kind != model.Union {
		return &Error{Code: CodeTypeKindConflicted, TypeName: typeName, Kind1: existing.Kind.String(), Kind2: model.Union.String()}
	}
	shareable := hasDirective(d.Directives, "shareable", link)
	if existed && existing.Owner != "" && existing.Owner != service && !shareable {
		return &Error{Code: CodeDefinitionConflicted, TypeName: typeName}
	}
	t := c.schema.EnsureType(typeName, model.Union)
	if !shareable && t.Owner == "" {
		t.Owner = service
	}
	for _, member := range d.Types {
		t.AddPossibleType(member.Name.String())
	}
	return nil
}

func (c *composer) mergeEnum(service string, d *ast.EnumTypeDefinition, link linkInfo) error {
	typeName := d.Name.String()
	existing, existed := c.schema.Lookup(typeName)
	if existed && existing.Kind != model.Enum {
		return &Error{Code: CodeTypeKindConflicted, TypeName: typeName, Kind1: existing.Kind.String(), Kind2: model.Enum.String()}
	}
	shareable := hasDirective(d.Directives, "shareable", link)
	if existed && existing.Owner != "" && existing.Owner != service && !shareable {
		return &Error{Code: CodeDefinitionConflicted, TypeName: typeName}
	}
	t := c.schema.EnsureType(typeName, model.Enum)
	if !shareable && t.Owner == "" {
		t.Owner = service
	}
	if len(t.EnumValues()) > 0 {
		return nil
	}
	values := make([]string, 0, len(d.Values))
	for _, v := range d.Values {
		values = append(values, v.Name.String())
	}
	t.SetEnumValues(values)
	return nil
}

func (c *composer) mergeScalar(service string, d *ast.ScalarTypeDefinition, link linkInfo) error {
	typeName := d.Name.String()
	existing, existed := c.schema.Lookup(typeName)
	if existed {
		if wellKnownScalars[typeName] {
			return nil // first description wins silently (spec §9)
		}
		if existing.Owner != "" && existing.Owner != service && !hasDirective(d.Directives, "shareable", link) {
			return &Error{Code: CodeDefinitionConflicted, TypeName: typeName}
		}
		return nil
	}
	t := c.schema.EnsureType(typeName, model.Scalar)
	if !hasDirective(d.Directives, "shareable", link) && !wellKnownScalars[typeName] {
		t.Owner = service
	}
	return nil
}

func (c *composer) mergeInputObject(service string, d *ast.InputObjectTypeDefinition, link linkInfo) error {
	typeName := d.Name.String()
	existing, existed := c.schema.Lookup(typeName)
	if existed && existing.Kind != model.InputObject {
		return &Error{Code: CodeTypeKindConflicted, TypeName: typeName, Kind1: existing.Kind.String(), Kind2: model.InputObject.String()}
	}
	shareable := hasDirective(d.Directives, "shareable", link)
	if existed && existing.Owner != "" && existing.Owner != service && !shareable {
		return &Error{Code: CodeDefinitionConflicted, TypeName: typeName}
	}
	t := c.schema.EnsureType(typeName, model.InputObject)
	if !shareable && t.Owner == "" {
		t.Owner = service
	}
	if len(t.InputFields()) > 0 {
		return nil
	}
	for _, fd := range d.Fields {
		t.SetInputField(&model.Field{
			Name: fd.Name.String(),
			Type: printASTType(fd.Type),
		})
	}
	return nil
}

// validateKeys enforces I4: every name in every @key selection must
// resolve to a field of the declaring type in the declaring subgraph.
func (c *composer) validateKeys() error {
	for _, t := range c.schema.Types() {
		for _, service := range t.KeyOrder {
			for _, key := range t.KeysFor(service) {
				for _, name := range key.Fields.Names() {
					if _, ok := t.Field(name); !ok {
						return &Error{Code: CodeKeyFieldsMissing, TypeName: t.Name, FieldName: name, Service: service}
					}
				}
			}
		}
	}
	return nil
}

// dropEmptyRoots implements I6.
func (c *composer) dropEmptyRoots() {
	for _, name := range []string{c.schema.MutationType, c.schema.SubscriptionType} {
		t, ok := c.schema.Lookup(name)
		if ok && len(t.Fields()) == 0 {
			c.schema.RemoveType(name)
			if name == c.schema.MutationType {
				c.schema.MutationType = ""
			} else {
				c.schema.SubscriptionType = ""
			}
		}
	}
}

// computePossibleTypes performs the reverse `implements` pass (spec §4.B
// step 5): for every object that implements an interface, record it as a
// possible type of that interface.
func (c *composer) computePossibleTypes() {
	for _, t := range c.schema.Types() {
		if t.Kind != model.Object {
			continue
		}
		for _, iface := range t.Implements() {
			if ifaceType, ok := c.schema.Lookup(iface); ok {
				ifaceType.AddPossibleType(t.Name)
			}
		}
	}
}

// injectIntrospectionAndFederationFields adds the built-in introspection
// root fields plus `_service { sdl }` (spec §4.B step 5, SPEC_FULL §3
// "_service" supplement).
func (c *composer) injectIntrospectionAndFederationFields() {
	queryType, _ := c.schema.Lookup(c.schema.QueryType)
	if queryType == nil {
		return
	}
	if _, ok := queryType.Field("__schema"); !ok {
		queryType.SetField(&model.Field{Name: "__schema", Type: "__Schema!"})
	}
	if _, ok := queryType.Field("__type"); !ok {
		queryType.SetField(&model.Field{
			Name:      "__type",
			Type:      "__Type",
			Arguments: []model.Argument{{Name: "name", Type: "String!"}},
		})
	}
	if _, ok := queryType.Field("_service"); !ok {
		queryType.SetField(&model.Field{Name: "_service", Type: "_Service!"})
	}
}

// warnUnresolvableRequires implements the spec §9 open-question guidance:
// surface a warning when a @requires field cannot be resolved to a
// distinct remote subgraph (the required entity has keys only in the
// current service).
func (c *composer) warnUnresolvableRequires(subgraphs []Subgraph) {
	for _, sg := range subgraphs {
		doc := c.docs[sg.Name]
		link := c.links[sg.Name]
		for _, def := range doc.Definitions {
			ext, ok := def.(*ast.ObjectTypeExtension)
			if !ok {
				continue
			}
			typeName := ext.Name.String()
			for _, fd := range ext.Fields {
				d, ok := directiveByName(fd.Directives, "requires", link)
				if !ok {
					continue
				}
				fieldsStr, _ := stringArg(d, "fields")
				t, ok := c.schema.Lookup(typeName)
				if !ok {
					continue
				}
				hasRemote := false
				for _, svc := range t.KeyOrder {
					if svc != sg.Name {
						hasRemote = true
						break
					}
				}
				if !hasRemote {
					c.warnings = append(c.warnings, Warning{
						Message:  fmt.Sprintf("@requires(fields: %q) on %s.%s has no distinct remote service with keys for %s; falling back to %s itself", fieldsStr, typeName, fd.Name.String(), typeName, sg.Name),
						TypeName: typeName,
						Field:    fd.Name.String(),
						Service:  sg.Name,
					})
				}
			}
		}
	}
}
