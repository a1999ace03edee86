// Package descriptor reads, patches and writes the resource adaptor
// deployment descriptor (META-INF/deploy-config.xml).
//
// The descriptor has a fixed shape:
//
//	<root>
//	  <ra-entity>
//	    <properties>
//	      <property name="..." value="..."/>
//	    </properties>
//	  </ra-entity>
//	</root>
//
// Documents are held as a github.com/beevik/etree DOM so that element order,
// unrelated attributes, comments and whitespace survive a patch untouched;
// only the value attributes of matched properties change.
package descriptor
